package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "en", cfg.AppLang)
	assert.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, 10, cfg.DimensionFilterCount)
	assert.False(t, cfg.RatiosProjectFilters)
	assert.Equal(t, 10*time.Second, cfg.AssetLoadTimeout)
	assert.Equal(t, "15 1 * * *", cfg.RatiosWarmupCron)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_LANG", "id")
	t.Setenv("DIMENSION_FILTER_COUNT", "3")
	t.Setenv("RATIOS_PROJECT_FILTERS", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "id", cfg.AppLang)
	assert.Equal(t, 3, cfg.DimensionFilterCount)
	assert.True(t, cfg.RatiosProjectFilters)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("DIMENSION_FILTER_COUNT", "-1")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("DIMENSION_FILTER_COUNT", "10")
	t.Setenv("ASSET_LOAD_TIMEOUT", "0s")
	_, err = LoadConfig()
	assert.Error(t, err)

	t.Setenv("ASSET_LOAD_TIMEOUT", "soon")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestNilConfigIsNotProduction(t *testing.T) {
	var cfg *Config
	assert.False(t, cfg.IsProduction())
}
