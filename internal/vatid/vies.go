package vatid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/salestax/internal/cache"
	"github.com/smallbiznis/salestax/internal/config"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	viesResultTTL = 24 * time.Hour
	maxBodySize   = 1 << 20
)

type viesResponse struct {
	IsValid   bool   `json:"isValid"`
	UserError string `json:"userError"`
}

// VIESClient checks EU VAT numbers against the European Commission's
// VIES REST service. Any failure reports the number as unchecked.
type VIESClient struct {
	baseURL string
	client  *http.Client
	results cache.Cache[string, taxdomain.ValidationResult]
	log     *zap.Logger
}

func NewVIESClient(baseURL string, timeout time.Duration, log *zap.Logger) *VIESClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &VIESClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
		results: cache.NewTTLCache[string, taxdomain.ValidationResult](),
		log:     log.Named("vatid.vies"),
	}
}

// ProvideChecker returns nil unless VIES checks are enabled.
func ProvideChecker(cfg config.Config, log *zap.Logger) Checker {
	if !cfg.VIES.Enabled {
		return nil
	}
	return NewVIESClient(cfg.VIES.BaseURL, cfg.VIES.Timeout, log)
}

func (c *VIESClient) Check(ctx context.Context, prefix, number string) (taxdomain.ValidationResult, error) {
	key := cache.Key("vies", prefix, number)
	if cached, ok := c.results.Get(key); ok {
		return cached, nil
	}

	ctx, span := otel.Tracer("salestax/vatid").Start(ctx, "vies.Check")
	defer span.End()
	span.SetAttributes(attribute.String("vat_prefix", prefix))

	endpoint := fmt.Sprintf("%s/ms/%s/vat/%s", c.baseURL, url.PathEscape(prefix), url.PathEscape(number))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return taxdomain.ValidationUnchecked, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return taxdomain.ValidationUnchecked, fmt.Errorf("vies request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return taxdomain.ValidationUnchecked, fmt.Errorf("vies read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return taxdomain.ValidationUnchecked, fmt.Errorf("vies status %d", resp.StatusCode)
	}

	var payload viesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return taxdomain.ValidationUnchecked, fmt.Errorf("vies decode: %w", err)
	}

	switch strings.ToUpper(payload.UserError) {
	case "", "VALID", "INVALID":
	default:
		// MS_UNAVAILABLE, TIMEOUT and friends: the registry could not answer.
		c.log.Warn("vies check unavailable", zap.String("vat_prefix", prefix), zap.String("user_error", payload.UserError))
		return taxdomain.ValidationUnchecked, fmt.Errorf("vies unavailable: %s", payload.UserError)
	}

	res := result(payload.IsValid)
	c.results.Set(key, res, viesResultTTL)
	return res, nil
}
