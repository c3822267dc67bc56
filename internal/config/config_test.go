package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("AUTH_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.AuthSecret)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TAX_RATE_PERCENT", "")
	t.Setenv("PASSWORD_SCHEME", "")
	t.Setenv("MENU_TABLE", "")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.TaxRatePercent)
	assert.Equal(t, PasswordSchemeSHA256, cfg.PasswordScheme)
	assert.Equal(t, "jumjum_menu_items", cfg.Tables.Menu)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.True(t, cfg.ExposeInternalErrors)
}

func TestLoadYAMLFileIsOverriddenByEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jumjum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
PORT: 9090
TAX_RATE_PERCENT: 10
BILLING_TABLE: bills_from_file
PASSWORD_SCHEME: bcrypt
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")
	t.Setenv("TAX_RATE_PERCENT", "")
	t.Setenv("PASSWORD_SCHEME", "")
	t.Setenv("BILLING_TABLE", "bills_from_env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, 10.0, cfg.TaxRatePercent)
	assert.Equal(t, PasswordSchemeBcrypt, cfg.PasswordScheme)
	assert.Equal(t, "bills_from_env", cfg.Tables.Billing)
}

func TestLoadRejectsUnknownPasswordScheme(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PASSWORD_SCHEME", "md5")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load()
	require.Error(t, err)
}
