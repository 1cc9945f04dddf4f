package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/salestax/internal/audit/domain"
	"github.com/smallbiznis/salestax/internal/clock"
	"github.com/smallbiznis/salestax/internal/observability/metrics"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"github.com/smallbiznis/salestax/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParams struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       taxdomain.RateRepository
	Validators taxdomain.VatIDValidatorRegistry
	Flags      taxdomain.FeatureFlags
	Zips       taxdomain.ZipStateLookup
	Clock      clock.Clock
	Policy     taxdomain.PolicySource

	TaxAPI  taxdomain.TaxAPI         `optional:"true"`
	Geo     taxdomain.GeoLocator     `optional:"true"`
	Sellers taxdomain.SellerAccounts `optional:"true"`
	Metrics *metrics.TaxMetrics      `optional:"true"`
	Audit   auditdomain.Service      `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	repo       taxdomain.RateRepository
	validators taxdomain.VatIDValidatorRegistry
	flags      taxdomain.FeatureFlags
	zips       taxdomain.ZipStateLookup
	clock      clock.Clock
	policy     taxdomain.PolicySource
	taxAPI     taxdomain.TaxAPI
	geo        taxdomain.GeoLocator
	sellers    taxdomain.SellerAccounts
	metrics    *metrics.TaxMetrics
	audit      auditdomain.Service
}

func NewService(p ServiceParams) taxdomain.Service {
	return &Service{
		log:        p.Log.Named("tax.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		validators: p.Validators,
		flags:      p.Flags,
		zips:       p.Zips,
		clock:      p.Clock,
		policy:     p.Policy,
		taxAPI:     p.TaxAPI,
		geo:        p.Geo,
		sellers:    p.Sellers,
		metrics:    p.Metrics,
		audit:      p.Audit,
	}
}

func (s *Service) Policy() taxdomain.Policy {
	return s.policy.Policy()
}

func (s *Service) dependencies() Dependencies {
	return Dependencies{
		Rates:      s.repo,
		TaxAPI:     s.taxAPI,
		Validators: s.validators,
		Flags:      s.flags,
		Geo:        s.geo,
		Zips:       s.zips,
		Sellers:    s.sellers,
		Clock:      s.clock,
		Policy:     s.policy.Policy(),
		Log:        s.log.Named("calculator"),
		Metrics:    s.metrics,
	}
}

// Calculate builds a fresh calculator for the purchase and runs it.
func (s *Service) Calculate(ctx context.Context, req taxdomain.CalculateRequest) (*taxdomain.Calculation, error) {
	start := time.Now()
	calculator, err := NewCalculator(s.dependencies(), CalculatorInput{
		Product:       req.Product,
		Price:         req.Price,
		ShippingCost:  req.ShippingCost,
		Quantity:      req.Quantity,
		BuyerLocation: req.BuyerLocation,
		BuyerVatID:    req.BuyerVatID,
	})
	if err != nil {
		return nil, err
	}

	calc, err := calculator.Calculate(ctx)
	if err != nil {
		s.log.Error("tax calculation failed",
			zap.String("country", req.BuyerLocation.Country),
			zap.Error(err),
		)
		return nil, err
	}

	country := taxdomain.NormalizeCountry(req.BuyerLocation.Country)
	s.metrics.IncCalculation(string(calc.Reason), country)
	s.metrics.ObserveDuration(time.Since(start))

	fields := []zap.Field{
		zap.String("product_id", req.Product.ID.String()),
		zap.String("country", country),
		zap.String("state", calculator.State()),
		zap.String("reason", string(calc.Reason)),
		zap.Int64("price_cents", calc.Price),
		zap.String("tax_cents", calc.Tax.String()),
		zap.Bool("used_tax_api", calc.UsedTaxAPI),
	}
	if calc.Rate != nil {
		fields = append(fields, zap.String("rate_id", calc.Rate.ID.String()))
	}
	s.log.Debug("tax calculated", fields...)

	return calc, nil
}

func (s *Service) CreateRate(ctx context.Context, req taxdomain.CreateRateRequest) (*taxdomain.RateResponse, error) {
	combined, err := decimal.NewFromString(strings.TrimSpace(req.CombinedRate))
	if err != nil {
		return nil, taxdomain.ErrInvalidTaxRate
	}

	var state *string
	if req.State != nil {
		value := strings.ToUpper(strings.TrimSpace(*req.State))
		if value != "" {
			state = &value
		}
	}

	var userID *snowflake.ID
	if req.UserID != nil && strings.TrimSpace(*req.UserID) != "" {
		parsed, err := snowflake.ParseString(strings.TrimSpace(*req.UserID))
		if err != nil || parsed == 0 {
			return nil, taxdomain.ErrInvalidID
		}
		userID = &parsed
	}

	now := s.clock.Now().UTC()
	record := &taxdomain.TaxRate{
		ID:                  s.genID.Generate(),
		Country:             taxdomain.NormalizeCountry(req.Country),
		State:               state,
		CombinedRate:        combined,
		IsSellerResponsible: req.IsSellerResponsible,
		IsEpublicationRate:  req.IsEpublicationRate,
		ApplicableYears:     req.ApplicableYears,
		UserID:              userID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info("tax rate created",
		zap.String("rate_id", record.ID.String()),
		zap.String("country", record.Country),
		zap.String("state", record.StateCode()),
		zap.String("combined_rate", record.CombinedRate.String()),
	)
	s.recordAudit(ctx, auditdomain.ActionTaxRateCreated, record)

	resp := record.ToResponse()
	return &resp, nil
}

func (s *Service) ListRates(ctx context.Context, req taxdomain.ListRatesRequest) (*taxdomain.ListRatesResponse, error) {
	q := taxdomain.RateQuery{
		Country:                  taxdomain.NormalizeCountry(req.Country),
		State:                    strings.ToUpper(strings.TrimSpace(req.State)),
		IncludeSellerResponsible: req.IncludeSellerResponsible,
		AnyOwner:                 true,
	}

	pageSize := req.Size()
	q.Limit = pageSize + 1
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, taxdomain.ErrInvalidPageToken
		}
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, taxdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, taxdomain.ErrInvalidPageToken
		}
		q.After = &taxdomain.RateCursor{CreatedAt: createdAt.UTC(), ID: afterID}
	}

	items, err := s.repo.FindRates(ctx, q)
	if err != nil {
		return nil, err
	}

	page, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(r *taxdomain.TaxRate) pagination.Cursor {
		return pagination.Cursor{
			ID:        r.ID.String(),
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	})

	resp := make([]taxdomain.RateResponse, 0, len(page))
	for i := range page {
		resp = append(resp, page[i].ToResponse())
	}
	return &taxdomain.ListRatesResponse{Rates: resp, PageInfo: pageInfo}, nil
}

func (s *Service) DeleteRate(ctx context.Context, id string) error {
	rateID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return taxdomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, rateID)
	if err != nil {
		return err
	}
	if item == nil {
		return taxdomain.ErrNotFound
	}

	if err := s.repo.Delete(ctx, rateID); err != nil {
		return err
	}
	s.log.Info("tax rate deleted", zap.String("rate_id", rateID.String()))
	s.recordAudit(ctx, auditdomain.ActionTaxRateDeleted, item)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, rate *taxdomain.TaxRate) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, auditdomain.Entry{
		Action:     action,
		TargetType: "tax_rate",
		TargetID:   rate.ID.String(),
		Metadata: map[string]any{
			"country":       rate.Country,
			"state":         rate.StateCode(),
			"combined_rate": rate.CombinedRate.String(),
		},
	})
}
