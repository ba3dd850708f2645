package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_PORT", "TOTAL_MACHINES", "WASTAGE_FRACTION", "YARN_PER_METER",
		"STORE_BACKEND", "SQLITE_PATH", "MONGODB_URI", "MONGODB_DB_NAME",
		"GOOGLE_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEET_DATABASE_ID",
		"WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID", "TIMEZONE", "REPORT_CRON_SCHEDULE",
	} {
		// godotenv never overrides a variable that exists, even when empty.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DefaultTotalMachines, cfg.Production.TotalMachines)
	assert.InDelta(t, DefaultWastageFraction, cfg.Production.WastageFraction, 1e-12)
	assert.InDelta(t, DefaultYarnPerMeter, cfg.Production.YarnPerMeter, 1e-12)
	assert.False(t, cfg.Production.YarnPerMeterSet)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.False(t, cfg.WhatsApp.Enabled())
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := "TOTAL_MACHINES=3\nYARN_PER_METER=0.2854\nSTORE_BACKEND=memory\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Production.TotalMachines)
	assert.InDelta(t, 0.2854, cfg.Production.YarnPerMeter, 1e-12)
	assert.True(t, cfg.Production.YarnPerMeterSet)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOTAL_MACHINES", "seven")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOTAL_MACHINES")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:     ServerConfig{Port: "8080"},
			Production: ProductionConfig{TotalMachines: 7, WastageFraction: 0.015, YarnPerMeter: 0.02854},
			Store:      StoreConfig{Backend: BackendMemory},
			Reporting:  ReportingConfig{CronSchedule: "0 20 * * 6", Timezone: "UTC"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "zero machines", mutate: func(c *Config) { c.Production.TotalMachines = 0 }, errMsg: "TOTAL_MACHINES"},
		{name: "full wastage", mutate: func(c *Config) { c.Production.WastageFraction = 1 }, errMsg: "WASTAGE_FRACTION"},
		{name: "negative yarn", mutate: func(c *Config) { c.Production.YarnPerMeter = -1 }, errMsg: "YARN_PER_METER"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Store.Backend = BackendMongoDB; c.MongoDB.DBName = "x" }, errMsg: "MONGODB_URI"},
		{name: "sheets without id", mutate: func(c *Config) { c.Store.Backend = BackendSheets; c.Sheets.CredentialsPath = "c.json" }, errMsg: "GOOGLE_SHEET_DATABASE_ID"},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "csv" }, errMsg: "STORE_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
