package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/salestax/internal/audit/domain"
	"github.com/smallbiznis/salestax/internal/clock"
	"github.com/smallbiznis/salestax/internal/seller/domain"
	taxdomain "github.com/smallbiznis/salestax/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
	Audit auditdomain.Service `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
	audit auditdomain.Service
}

func New(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("seller.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
		audit: p.Audit,
	}
}

func (s *Service) HasTaxExemptProcessorAccount(ctx context.Context, sellerID snowflake.ID) (bool, error) {
	if sellerID == 0 {
		return false, nil
	}
	return s.repo.HasTaxExempt(ctx, s.db, sellerID)
}

// Register creates or updates the seller's account for a processor.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Response, error) {
	sellerID, err := snowflake.ParseString(strings.TrimSpace(req.SellerID))
	if err != nil || sellerID == 0 {
		return nil, domain.ErrInvalidSeller
	}
	processor := strings.ToLower(strings.TrimSpace(req.Processor))
	if processor == "" {
		return nil, domain.ErrInvalidProcessor
	}
	country := taxdomain.NormalizeCountry(req.Country)
	if !taxdomain.IsCountryCode(country) {
		return nil, domain.ErrInvalidCountry
	}

	now := s.clock.Now().UTC()
	existing, err := s.repo.FindBySellerAndProcessor(ctx, s.db, sellerID, processor)
	if err != nil {
		return nil, err
	}

	acct := existing
	if acct == nil {
		acct = &domain.Account{
			ID:        s.genID.Generate(),
			SellerID:  sellerID,
			Processor: processor,
			Country:   country,
			TaxExempt: req.TaxExempt,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.repo.Create(ctx, s.db, acct)
	} else {
		acct.Country = country
		acct.TaxExempt = req.TaxExempt
		acct.UpdatedAt = now
		err = s.repo.Update(ctx, s.db, acct)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("seller account registered",
		zap.String("seller_id", sellerID.String()),
		zap.String("processor", processor),
		zap.Bool("tax_exempt", acct.TaxExempt),
	)
	if s.audit != nil {
		_ = s.audit.Record(ctx, auditdomain.Entry{
			Action:     auditdomain.ActionSellerAccountUpdated,
			TargetType: "seller_account",
			TargetID:   acct.ID.String(),
			Metadata: map[string]any{
				"seller_id":  sellerID.String(),
				"processor":  processor,
				"tax_exempt": acct.TaxExempt,
			},
		})
	}
	return &domain.Response{
		ID:        acct.ID.String(),
		SellerID:  acct.SellerID.String(),
		Processor: acct.Processor,
		Country:   acct.Country,
		TaxExempt: acct.TaxExempt,
		CreatedAt: acct.CreatedAt,
		UpdatedAt: acct.UpdatedAt,
	}, nil
}
