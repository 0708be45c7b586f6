package factory

import (
	"context"
	"testing"

	"github.com/DjordjeVuckovic/grade-consensus/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	t.Run("missing type", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "")
		_, err := LoadEnv()
		assert.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "es")
		_, err := LoadEnv()
		assert.ErrorContains(t, err, "invalid STORAGE_TYPE")
	})

	t.Run("pg requires connection string", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "pg")
		t.Setenv("PG_CONNECTION_STRING", "")
		_, err := LoadEnv()
		assert.Error(t, err)
	})

	t.Run("pg with history", func(t *testing.T) {
		t.Setenv("STORAGE_TYPE", "pg")
		t.Setenv("PG_CONNECTION_STRING", "postgres://localhost/grading")
		t.Setenv("PG_MAX_CONNS", "16")
		t.Setenv("HISTORY_ES_ADDRESSES", "http://es1:9200, http://es2:9200")
		t.Setenv("HISTORY_ES_INDEX", "")

		cfg, err := LoadEnv()
		require.NoError(t, err)
		assert.Equal(t, storage.PG, cfg.Type)
		assert.Equal(t, int32(16), cfg.Pg.MaxConns)
		require.NotNil(t, cfg.History)
		assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.History.Addresses)
		assert.Equal(t, "grading_history", cfg.History.IndexName)
	})
}

func TestNew_InMem(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "in_mem")
	t.Setenv("HISTORY_ES_ADDRESSES", "")

	cfg, err := LoadEnv()
	require.NoError(t, err)
	assert.Nil(t, cfg.History)

	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, s.Store)
	assert.Nil(t, s.History)
	assert.True(t, s.Health.Healthy(context.Background()))
}
