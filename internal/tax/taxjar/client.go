package taxjar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/salestax/internal/config"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	taxesPath   = "/v2/taxes"
	maxBodySize = 1 << 20
)

type address struct {
	Country string `json:"country,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	City    string `json:"city,omitempty"`
	Street  string `json:"street,omitempty"`
}

type lineItem struct {
	Quantity       int64       `json:"quantity"`
	UnitPrice      json.Number `json:"unit_price"`
	ProductTaxCode string      `json:"product_tax_code,omitempty"`
}

type taxesRequest struct {
	FromCountry    string      `json:"from_country,omitempty"`
	FromState      string      `json:"from_state,omitempty"`
	FromZip        string      `json:"from_zip,omitempty"`
	FromCity       string      `json:"from_city,omitempty"`
	FromStreet     string      `json:"from_street,omitempty"`
	ToCountry      string      `json:"to_country"`
	ToState        string      `json:"to_state,omitempty"`
	ToZip          string      `json:"to_zip,omitempty"`
	Amount         json.Number `json:"amount"`
	Shipping       json.Number `json:"shipping"`
	NexusAddresses []address   `json:"nexus_addresses,omitempty"`
	LineItems      []lineItem  `json:"line_items"`
}

type taxesResponse struct {
	Tax struct {
		OrderTotalAmount decimal.Decimal            `json:"order_total_amount"`
		AmountToCollect  decimal.Decimal            `json:"amount_to_collect"`
		Rate             decimal.Decimal            `json:"rate"`
		HasNexus         bool                       `json:"has_nexus"`
		FreightTaxable   bool                       `json:"freight_taxable"`
		Jurisdictions    *jurisdictions             `json:"jurisdictions"`
		Breakdown        *taxdomain.TaxJarBreakdown `json:"breakdown"`
	} `json:"tax"`
}

type jurisdictions struct {
	Country string `json:"country"`
	State   string `json:"state"`
	County  string `json:"county"`
	City    string `json:"city"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// Client calls the TaxJar order tax endpoint. Every failure is returned as
// a *taxdomain.TaxAPIError so callers can fall back to local rates.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewClient(apiKey, baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.Named("tax.taxjar"),
	}
}

// Provide returns nil when no API key is configured, which disables the
// tax API step entirely.
func Provide(cfg config.Config, log *zap.Logger) taxdomain.TaxAPI {
	if !cfg.TaxJar.Enabled() {
		log.Info("taxjar api key not set, tax api disabled")
		return nil
	}
	return NewClient(cfg.TaxJar.APIKey, cfg.TaxJar.BaseURL, cfg.TaxJar.Timeout, log)
}

func (c *Client) TaxForOrder(ctx context.Context, req taxdomain.TaxAPIRequest) (*taxdomain.TaxJarResponse, error) {
	ctx, span := otel.Tracer("salestax/taxjar").Start(ctx, "taxjar.TaxForOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("to_country", req.Destination.Country),
		attribute.String("to_state", req.Destination.State),
	)

	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, &taxdomain.TaxAPIError{Message: "encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+taxesPath, bytes.NewReader(body))
	if err != nil {
		return nil, &taxdomain.TaxAPIError{Message: "build request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, &taxdomain.TaxAPIError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("taxjar response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &taxdomain.TaxAPIError{StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &taxdomain.TaxAPIError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}

	var decoded taxesResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &taxdomain.TaxAPIError{StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	return toResponse(decoded), nil
}

func buildRequest(req taxdomain.TaxAPIRequest) taxesRequest {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	amount := req.UnitPrice.Mul(decimal.NewFromInt(quantity))

	out := taxesRequest{
		FromCountry: req.Origin.Country,
		FromState:   req.Origin.State,
		FromZip:     req.Origin.Zip,
		FromCity:    req.Origin.City,
		FromStreet:  req.Origin.Street,
		ToCountry:   req.Destination.Country,
		ToState:     req.Destination.State,
		ToZip:       req.Destination.Zip,
		Amount:      json.Number(amount.String()),
		Shipping:    json.Number(req.Shipping.String()),
		LineItems: []lineItem{{
			Quantity:       quantity,
			UnitPrice:      json.Number(req.UnitPrice.String()),
			ProductTaxCode: req.ProductTaxCode,
		}},
	}
	if req.Nexus.Country != "" {
		out.NexusAddresses = []address{{
			Country: req.Nexus.Country,
			State:   req.Nexus.State,
			Zip:     req.Nexus.Zip,
			City:    req.Nexus.City,
			Street:  req.Nexus.Street,
		}}
	}
	return out
}

func toResponse(in taxesResponse) *taxdomain.TaxJarResponse {
	out := &taxdomain.TaxJarResponse{
		Rate:            in.Tax.Rate,
		AmountToCollect: in.Tax.AmountToCollect,
		HasNexus:        in.Tax.HasNexus,
		FreightTaxable:  in.Tax.FreightTaxable,
		Breakdown:       in.Tax.Breakdown,
	}
	if out.Breakdown != nil && in.Tax.Jurisdictions != nil {
		out.Breakdown.Country = in.Tax.Jurisdictions.Country
		out.Breakdown.State = in.Tax.Jurisdictions.State
		out.Breakdown.County = in.Tax.Jurisdictions.County
		out.Breakdown.City = in.Tax.Jurisdictions.City
	}
	return out
}

func errorMessage(raw []byte, status string) string {
	var apiErr errorResponse
	if err := json.Unmarshal(raw, &apiErr); err == nil {
		if detail := strings.TrimSpace(apiErr.Detail); detail != "" {
			return detail
		}
		if msg := strings.TrimSpace(apiErr.Error); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("taxjar request failed: %s", status)
}
