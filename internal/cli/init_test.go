package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/config"
	applog "finanzas/internal/log"
	"finanzas/internal/sheets/memory"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:               "8081",
		RateLimitPerMinute: 60,
		SQLiteDBPath:       filepath.Join(t.TempDir(), "data", "cli.db"),
	}
}

func TestOpenStore_AppliesSeedOnce(t *testing.T) {
	cfg := testConfig(t)
	cfg.SeedFile = filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(cfg.SeedFile, []byte(`
badges:
  - {code: EUR, symbol: "€", description: Euro}
  - {code: USD, symbol: "$"}
groups:
  - {name: Fixed costs}
`), 0o600))

	logger := applog.New(applog.DefaultConfig())
	ctx := context.Background()

	repo, err := OpenStore(ctx, cfg, logger)
	require.NoError(t, err)
	badges, err := repo.Badges.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, badges, 2)
	require.NoError(t, repo.Close())

	repo, err = OpenStore(ctx, cfg, logger)
	require.NoError(t, err)
	defer repo.Close()
	badges, err = repo.Badges.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, badges, 2, "reopening must not duplicate seed rows")
}

func TestOpenStore_BadSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.SeedFile = filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(cfg.SeedFile, []byte("badges:\n  - {code: EURO}\n"), 0o600))

	_, err := OpenStore(context.Background(), cfg, applog.New(applog.DefaultConfig()))
	assert.Error(t, err)
}

func TestOpenPublisher_Disabled(t *testing.T) {
	pub, closeFn := OpenPublisher(testConfig(t), applog.New(applog.DefaultConfig()))
	assert.Nil(t, pub)
	closeFn()
}

func TestOpenMirror_FallsBackToMemory(t *testing.T) {
	mirror, err := OpenMirror(context.Background(), testConfig(t), applog.New(applog.DefaultConfig()))
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, mirror)
}

func TestOpenMirror_MissingCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.GoogleSpreadsheetID = "sheet-id"
	_, err := OpenMirror(context.Background(), cfg, applog.New(applog.DefaultConfig()))
	assert.Error(t, err)
}
