package config

import (
	"errors"
	"testing"

	"github.com/innbucks/dashboard/internal/engine"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, engine.ProfileClassic, cfg.Generator.Profile)
	assert.Nil(t, cfg.Generator.Customers)

	gen, err := cfg.GeneratorConfig()
	require.NoError(t, err)
	assert.Equal(t, 1000, gen.CustomerCount)
	require.NotNil(t, gen.Seed)
	assert.Equal(t, uint64(42), *gen.Seed)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("INNBUCKS_GENERATOR_PROFILE", "full")
	t.Setenv("INNBUCKS_GENERATOR_CUSTOMERS", "250")
	t.Setenv("INNBUCKS_GENERATOR_SEED", "7")
	t.Setenv("INNBUCKS_HTTP_ADDR", ":9090")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)

	gen, err := cfg.GeneratorConfig()
	require.NoError(t, err)
	assert.Equal(t, engine.ProfileFull, gen.Profile)
	assert.Equal(t, 250, gen.CustomerCount)
	assert.Equal(t, 90, gen.LookbackDays)
	require.NotNil(t, gen.Seed)
	assert.Equal(t, uint64(7), *gen.Seed)
}

func TestLoadFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	require.NoError(t, fs.Parse([]string{"--customers=0", "--unseeded", "--lookback-days=7", "--log-format=console"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Log.Format)

	gen, err := cfg.GeneratorConfig()
	require.NoError(t, err)
	assert.Equal(t, 0, gen.CustomerCount)
	assert.Equal(t, 7, gen.LookbackDays)
	assert.Nil(t, gen.Seed)
}

func TestLoadRejectsInvalidGenerator(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	require.NoError(t, fs.Parse([]string{"--customers=-10"}))

	_, err := Load(fs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrInvalidConfig))
}

func TestUnknownProfile(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Addr: ":1"}, Generator: GeneratorConfig{Profile: "v9"}}
	err := cfg.Validate()
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}
