package authorization

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	ObjectTaxRate       = "tax_rate"
	ObjectFeatureFlag   = "feature_flag"
	ObjectSellerAccount = "seller_account"
	ObjectAuditLog      = "audit_log"
)

const (
	ActionTaxRateView   = "tax_rate.view"
	ActionTaxRateCreate = "tax_rate.create"
	ActionTaxRateDelete = "tax_rate.delete"

	ActionFeatureFlagView   = "feature_flag.view"
	ActionFeatureFlagToggle = "feature_flag.toggle"

	ActionSellerAccountManage = "seller_account.manage"

	ActionAuditLogView = "audit_log.view"
)

const (
	RoleAdmin   = "admin"
	RoleTaxOps  = "tax_ops"
	RoleAuditor = "auditor"
)

// Principal is an authenticated operator of the administration API.
type Principal struct {
	Actor string
	Role  string
}

// Subject is the casbin subject the principal is enforced as.
func (p Principal) Subject() string {
	return fmt.Sprintf("admin:%s", p.Actor)
}

func (p Principal) roleName() string {
	return fmt.Sprintf("role:%s", strings.ToLower(p.Role))
}

type Service interface {
	// Authenticate resolves a raw admin API key to the operator it was issued to.
	Authenticate(ctx context.Context, rawKey string) (Principal, error)
	Authorize(ctx context.Context, principal Principal, object string, action string) error
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidActor       = errors.New("invalid_actor")
	ErrInvalidObject      = errors.New("invalid_object")
	ErrInvalidAction      = errors.New("invalid_action")
)

// HashAPIKey hashes a raw key the way ADMIN_API_KEYS entries are stored.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
