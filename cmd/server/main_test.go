package main

import (
	"context"
	"testing"

	"github.com/DoyleJ11/duo-trivia-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestOpenStore_MemorySeededAtStartup(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.DBDriver = config.DriverMemory
	cfg.SeedFile = "../../db/questions.yaml"

	st, err := openStore(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	q, err := st.RandomQuestion(ctx, "geography")
	require.NoError(t, err)
	assert.Equal(t, "geography", q.CategoryID)

	names, err := st.Usernames(ctx, "demo-alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", names["demo-alice"])
}

func TestOpenStore_MissingSeedFile(t *testing.T) {
	cfg := config.Default()
	cfg.DBDriver = config.DriverMemory
	cfg.SeedFile = t.TempDir() + "/missing.yaml"

	_, err := openStore(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}
