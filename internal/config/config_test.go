package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PG_HOST", "localhost")
	t.Setenv("PG_USER", "quiz")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "quizbank")
	t.Setenv("REDIS_ADDR", "localhost:6379")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "quiz-allocator", cfg.Name)
	assert.Equal(t, "strict", cfg.Allocation.DefaultPolicy)
	assert.Equal(t, 3, cfg.Allocation.MaxAttempts)
	assert.Equal(t, LockBackendLocal, cfg.Allocation.LockBackend)
	assert.Equal(t, 5*time.Second, cfg.Allocation.LockWait)
	assert.Equal(t, 25*time.Millisecond, cfg.Allocation.LockPoll)
	assert.Empty(t, cfg.Security.JWTSecret)
	assert.Equal(t, "host=localhost port=5432 user=quiz password=secret dbname=quizbank sslmode=disable pool_max_conns=10", cfg.Postgres.ConnString())
}

func TestLoadRejectsUnknownLockBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOCATION_LOCK_BACKEND", "etcd")

	_, err := Load(context.Background())
	assert.ErrorContains(t, err, "ALLOCATION_LOCK_BACKEND")
}

func TestLoadRequiresPostgres(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("PG_HOST", "")

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestLoadPostgresIgnoresOtherSections(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_USER", "quiz")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "quizbank")
	t.Setenv("REDIS_ADDR", "")

	pg, err := LoadPostgres()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=quiz password=secret dbname=quizbank sslmode=disable", pg.DSN())
}
