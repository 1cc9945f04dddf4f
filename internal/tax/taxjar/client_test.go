package taxjar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRequest() taxdomain.TaxAPIRequest {
	dest := taxdomain.Address{Country: "US", State: "CA", Zip: "94104"}
	return taxdomain.TaxAPIRequest{
		Origin:         taxdomain.Address{Country: "US", State: "CA", Zip: "94104", City: "San Francisco"},
		Destination:    dest,
		Nexus:          dest,
		Quantity:       2,
		ProductTaxCode: "31000",
		UnitPrice:      decimal.RequireFromString("50"),
		Shipping:       decimal.RequireFromString("5.00"),
	}
}

func TestTaxForOrder(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/taxes", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tax":{
			"order_total_amount":105.0,
			"amount_to_collect":8.63,
			"rate":0.08625,
			"has_nexus":true,
			"freight_taxable":false,
			"jurisdictions":{"country":"US","state":"CA","county":"SAN FRANCISCO","city":"SAN FRANCISCO"},
			"breakdown":{"combined_tax_rate":0.08625,"state_tax_rate":0.0625,"county_tax_rate":0.01,"city_tax_rate":0,"special_tax_rate":0.01375}
		}}`))
	}))
	defer srv.Close()

	client := NewClient("secret", srv.URL, time.Second, zap.NewNop())
	resp, err := client.TaxForOrder(context.Background(), testRequest())
	require.NoError(t, err)

	assert.True(t, resp.AmountToCollect.Equal(decimal.RequireFromString("8.63")))
	assert.True(t, resp.Rate.Equal(decimal.RequireFromString("0.08625")))
	assert.True(t, resp.HasNexus)
	require.NotNil(t, resp.Breakdown)
	assert.True(t, resp.Breakdown.StateTaxRate.Equal(decimal.RequireFromString("0.0625")))
	assert.Equal(t, "SAN FRANCISCO", resp.Breakdown.County)

	assert.Equal(t, "US", captured["to_country"])
	assert.Equal(t, "94104", captured["to_zip"])
	assert.Equal(t, float64(100), captured["amount"])
	assert.Equal(t, float64(5), captured["shipping"])
	items := captured["line_items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, float64(2), item["quantity"])
	assert.Equal(t, float64(50), item["unit_price"])
	assert.Equal(t, "31000", item["product_tax_code"])
	assert.Len(t, captured["nexus_addresses"], 1)
}

func TestTaxForOrderErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		class   string
		message string
	}{
		{name: "client", status: http.StatusBadRequest, body: `{"error":"Bad Request","detail":"to_zip 9410 is not used within to_state CA","status":400}`, class: "client", message: "to_zip 9410 is not used within to_state CA"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"Unauthorized"}`, class: "client", message: "Unauthorized"},
		{name: "server", status: http.StatusServiceUnavailable, body: `oops`, class: "server", message: "taxjar request failed: 503 Service Unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient("secret", srv.URL, time.Second, nil).TaxForOrder(context.Background(), testRequest())
			var apiErr *taxdomain.TaxAPIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.class, apiErr.Class())
			assert.Equal(t, tc.message, apiErr.Message)
		})
	}
}

func TestTaxForOrderTransportFailureIsServerClass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient("secret", url, time.Second, nil).TaxForOrder(context.Background(), testRequest())
	var apiErr *taxdomain.TaxAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsServerError())
	assert.Zero(t, apiErr.StatusCode)
}
