package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/billing")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 7090, cfg.HTTP.Port)
	assert.InDelta(t, 0.25, cfg.Billing.DepositCapRatio, 0.001)
	assert.Equal(t, 2, cfg.Billing.DefaultReportLimit)
}

func TestLoadRequiresDSNAndSecret(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("DB_DSN", "postgres://localhost/billing")
	t.Setenv("JWT_ACCESS_SECRET", "")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadRejectsBadCapRatio(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/billing")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("BILLING_DEPOSIT_CAP_RATIO", "1.5")

	_, err := Load()
	require.Error(t, err)
}
