package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAdminAPIKeys(t *testing.T) {
	hash := strings.Repeat("ab", 32)

	keys := parseAdminAPIKeys(" ops@example.com:Admin:" + strings.ToUpper(hash) + ", audit:auditor:" + hash +
		",missing-role::" + hash + ",short:admin:abcd,too:many:parts:" + hash)

	require.Len(t, keys, 2)
	assert.Equal(t, AdminAPIKey{Actor: "ops@example.com", Role: "admin", KeyHash: hash}, keys[0])
	assert.Equal(t, AdminAPIKey{Actor: "audit", Role: "auditor", KeyHash: hash}, keys[1])
}

func TestLoadReadsAdminAPIKeys(t *testing.T) {
	hash := strings.Repeat("0f", 32)
	t.Setenv("ADMIN_API_KEYS", "ops:tax_ops:"+hash)

	cfg := Load()

	require.Len(t, cfg.Admin.APIKeys, 1)
	assert.Equal(t, "ops", cfg.Admin.APIKeys[0].Actor)
	assert.Equal(t, "tax_ops", cfg.Admin.APIKeys[0].Role)
}
