package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
)

func runCmd(t *testing.T, cfg *config.Config, store repository.Store, args ...string) (string, error) {
	t.Helper()
	open := func(context.Context) (repository.Store, error) { return store, nil }
	root := newRootCmd(cfg, open, zap.NewNop())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedAndReports(t *testing.T) {
	cfg := &config.Config{
		Store: config.StoreConfig{Backend: config.StoreBackendMemory},
		Auth:  config.AuthConfig{BcryptCost: bcrypt.MinCost},
	}
	store := memory.NewStore()

	out, err := runCmd(t, cfg, store, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 3 users")

	out, err = runCmd(t, cfg, store, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 0 users")

	out, err = runCmd(t, cfg, store, "report", "agents")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Martínez")
	assert.Contains(t, out, "100")

	out, err = runCmd(t, cfg, store, "report", "priorities")
	require.NoError(t, err)
	assert.Contains(t, out, "critical")

	path := filepath.Join(t.TempDir(), "perf.xlsx")
	out, err = runCmd(t, cfg, store, "report", "export", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
}

func TestMigrateRequiresPostgres(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Backend: config.StoreBackendMemory}}
	_, err := runCmd(t, cfg, memory.NewStore(), "migrate")
	assert.ErrorContains(t, err, "STORE_BACKEND=postgres")
}
