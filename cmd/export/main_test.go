package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/innbucks/dashboard/internal/config"
	"github.com/innbucks/dashboard/internal/engine"
	"github.com/innbucks/dashboard/internal/export"
	"github.com/innbucks/dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func exportConfig(t *testing.T, customers int) config.Config {
	t.Helper()
	return config.Config{
		Generator: config.GeneratorConfig{Profile: engine.ProfileClassic, Customers: &customers},
		Out:       t.TempDir(),
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

func TestRunWritesEveryFile(t *testing.T) {
	cfg := exportConfig(t, 25)
	require.NoError(t, run(context.Background(), cfg, engine.Filter{}, zap.NewNop()))

	entries, err := os.ReadDir(cfg.Out)
	require.NoError(t, err)
	assert.Len(t, entries, len(export.Tables)+len(models.Dimensions))

	for _, name := range append(append([]string{}, export.Tables...), models.Dimensions...) {
		_, err := os.Stat(filepath.Join(cfg.Out, name+".csv"))
		assert.NoError(t, err, name)
	}
	assert.Len(t, readLines(t, filepath.Join(cfg.Out, "customers.csv")), 26)
	assert.Len(t, readLines(t, filepath.Join(cfg.Out, "accounts.csv")), 26)
}

func TestRunFilteredGoesToSlugDir(t *testing.T) {
	cfg := exportConfig(t, 40)
	f := engine.Filter{Region: "Harare", Channel: "Mobile App"}
	require.NoError(t, run(context.Background(), cfg, f, zap.NewNop()))

	dir := filepath.Join(cfg.Out, "harare-mobile-app")
	rows := readLines(t, filepath.Join(dir, "customers.csv"))
	require.NotEmpty(t, rows)
	for _, row := range rows[1:] {
		assert.Equal(t, "Harare", strings.Split(row, ",")[2])
	}
	for _, row := range readLines(t, filepath.Join(dir, "channel.csv"))[1:] {
		assert.True(t, strings.HasPrefix(row, "Mobile App,"), row)
	}

	_, err := os.Stat(filepath.Join(cfg.Out, "customers.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunCanceled(t *testing.T) {
	cfg := exportConfig(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, cfg, engine.Filter{}, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(cfg.Out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := exportConfig(t, -1)
	err := run(context.Background(), cfg, engine.Filter{}, zap.NewNop())
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}
