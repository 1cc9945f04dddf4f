package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/salestax/internal/cache"
	"github.com/smallbiznis/salestax/internal/config"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	cityPath    = "/geoip/v2.1/city/"
	resultTTL   = time.Hour
	maxBodySize = 1 << 20
)

var Module = fx.Module("geo",
	fx.Provide(Provide),
)

type names struct {
	Names map[string]string `json:"names"`
}

type cityResponse struct {
	Country struct {
		ISOCode string `json:"iso_code"`
	} `json:"country"`
	Subdivisions []struct {
		ISOCode string `json:"iso_code"`
		names
	} `json:"subdivisions"`
}

// Client resolves IP addresses with a GeoIP2-compatible web service.
// Every failure wraps taxdomain.ErrGeoLookupFailed.
type Client struct {
	baseURL   string
	accountID string
	key       string
	client    *http.Client
	results   cache.Cache[string, taxdomain.GeoLocation]
	log       *zap.Logger
}

// NewClient takes credentials as "account_id:license_key".
func NewClient(baseURL, credentials string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	account, key, _ := strings.Cut(strings.TrimSpace(credentials), ":")
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		accountID: account,
		key:       key,
		client:    &http.Client{Timeout: timeout},
		results:   cache.NewTTLCache[string, taxdomain.GeoLocation](),
		log:       log.Named("geo.client"),
	}
}

// Provide returns nil when no service is configured; the calculator then
// skips the Canary Islands IP check.
func Provide(cfg config.Config, log *zap.Logger) taxdomain.GeoLocator {
	if !cfg.Geo.Enabled() {
		log.Info("geoip base url not set, ip geolocation disabled")
		return nil
	}
	return NewClient(cfg.Geo.BaseURL, cfg.Geo.APIKey, cfg.Geo.Timeout, log)
}

func (c *Client) Locate(ctx context.Context, ip string) (*taxdomain.GeoLocation, error) {
	addr := net.ParseIP(strings.TrimSpace(ip))
	if addr == nil {
		return nil, fmt.Errorf("%w: invalid ip address", taxdomain.ErrGeoLookupFailed)
	}
	key := addr.String()
	if cached, ok := c.results.Get(key); ok {
		return &cached, nil
	}

	ctx, span := otel.Tracer("salestax/geo").Start(ctx, "geo.Locate")
	defer span.End()

	loc, err := c.lookup(ctx, key)
	if err != nil {
		span.SetStatus(codes.Error, "lookup failed")
		c.log.Debug("geo lookup failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", taxdomain.ErrGeoLookupFailed, err)
	}

	c.results.Set(key, *loc, resultTTL)
	return loc, nil
}

func (c *Client) lookup(ctx context.Context, ip string) (*taxdomain.GeoLocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+cityPath+url.PathEscape(ip), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.accountID != "" {
		req.SetBasicAuth(c.accountID, c.key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var payload cityResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	loc := &taxdomain.GeoLocation{CountryCode: taxdomain.NormalizeCountry(payload.Country.ISOCode)}
	// Both the English name and the ISO code are kept; policies may list either.
	for _, sub := range payload.Subdivisions {
		if name := sub.Names["en"]; name != "" {
			loc.Subdivisions = append(loc.Subdivisions, name)
		}
		if code := strings.ToUpper(strings.TrimSpace(sub.ISOCode)); code != "" {
			loc.Subdivisions = append(loc.Subdivisions, code)
		}
	}
	return loc, nil
}
