package authorization

import (
	"context"
	"crypto/subtle"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/salestax/internal/audit/domain"
	"github.com/smallbiznis/salestax/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const actionDenied = "authorization.denied"

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	keys     []config.AdminAPIKey
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		keys:     p.Config.Admin.APIKeys,
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authenticate(ctx context.Context, rawKey string) (Principal, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return Principal{}, ErrInvalidCredentials
	}

	hash := []byte(HashAPIKey(rawKey))
	for _, key := range s.keys {
		if subtle.ConstantTimeCompare(hash, []byte(key.KeyHash)) == 1 {
			return Principal{Actor: key.Actor, Role: key.Role}, nil
		}
	}
	return Principal{}, ErrInvalidCredentials
}

func (s *ServiceImpl) Authorize(ctx context.Context, principal Principal, object string, action string) error {
	if strings.TrimSpace(principal.Actor) == "" || strings.TrimSpace(principal.Role) == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := principal.Subject()
	if err := s.ensureGrouping(subject, principal.roleName()); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, principal, object, action)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping binds the subject to its configured role, dropping any
// binding left over from an earlier role.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, principal Principal, object string, action string) {
	s.log.Warn("authorization denied",
		zap.String("actor", principal.Actor),
		zap.String("role", principal.Role),
		zap.String("object", object),
		zap.String("action", action),
	)
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorType:  string(auditdomain.ActorTypeAdmin),
		ActorID:    principal.Actor,
		Action:     actionDenied,
		TargetType: "authorization",
		TargetID:   object,
		Metadata: map[string]any{
			"object": object,
			"action": action,
			"role":   principal.Role,
		},
	}); err != nil {
		s.log.Warn("failed to audit authorization denial", zap.Error(err))
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Auditor permissions (read-only)
		{"role:auditor", ObjectTaxRate, ActionTaxRateView},
		{"role:auditor", ObjectFeatureFlag, ActionFeatureFlagView},
		{"role:auditor", ObjectAuditLog, ActionAuditLogView},

		// Tax operations permissions
		{"role:tax_ops", ObjectTaxRate, ActionTaxRateView},
		{"role:tax_ops", ObjectTaxRate, ActionTaxRateCreate},
		{"role:tax_ops", ObjectTaxRate, ActionTaxRateDelete},
		{"role:tax_ops", ObjectFeatureFlag, ActionFeatureFlagView},
		{"role:tax_ops", ObjectFeatureFlag, ActionFeatureFlagToggle},
		{"role:tax_ops", ObjectSellerAccount, ActionSellerAccountManage},

		// Admin permissions
		{"role:admin", ObjectTaxRate, ActionTaxRateView},
		{"role:admin", ObjectTaxRate, ActionTaxRateCreate},
		{"role:admin", ObjectTaxRate, ActionTaxRateDelete},
		{"role:admin", ObjectFeatureFlag, ActionFeatureFlagView},
		{"role:admin", ObjectFeatureFlag, ActionFeatureFlagToggle},
		{"role:admin", ObjectSellerAccount, ActionSellerAccountManage},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
