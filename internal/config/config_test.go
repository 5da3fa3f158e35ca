package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "prospector.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.NotEmpty(t, cfg.Discovery.PrimaryQueries)
	assert.Contains(t, cfg.Discovery.PrimaryQueries[0], "{location}")
	assert.NotEmpty(t, cfg.Classify.IrrelevantCategories)
	assert.NotEmpty(t, cfg.Classify.ManagementSignals)
	assert.NotEmpty(t, cfg.Enrich.CorporateSuffixes)
	assert.NotEmpty(t, cfg.Enrich.IndustryWords)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PROSPECTOR_STORE_DRIVER", "postgres")
	t.Setenv("PROSPECTOR_STORE_DATABASE_URL", "postgres://localhost/prospector")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/prospector", cfg.Store.DatabaseURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		scope   string
		wantErr string
	}{
		{
			name:   "valid sqlite store",
			mutate: func(c *Config) {},
			scope:  "store",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Store.Driver = "mysql" },
			scope:   "store",
			wantErr: "unsupported store driver",
		},
		{
			name:    "missing database url",
			mutate:  func(c *Config) { c.Store.DatabaseURL = "" },
			scope:   "store",
			wantErr: "database_url is required",
		},
		{
			name:    "outreach requires smtp host",
			mutate:  func(c *Config) {},
			scope:   "outreach",
			wantErr: "smtp_host is required",
		},
		{
			name: "outreach requires from",
			mutate: func(c *Config) {
				c.Outreach.SMTPHost = "smtp.example.com"
			},
			scope:   "outreach",
			wantErr: "from is required",
		},
		{
			name:    "discovery requires queries",
			mutate:  func(c *Config) { c.Discovery.PrimaryQueries = nil },
			scope:   "discovery",
			wantErr: "primary_queries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate(tt.scope)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
