package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	t.Run("loads from ENV_PATH", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("GRADING_TEST_VALUE=from-file\n"), 0600))
		t.Setenv("ENV_PATH", path)
		t.Setenv("GRADING_TEST_VALUE", "")
		require.NoError(t, os.Unsetenv("GRADING_TEST_VALUE"))

		require.NoError(t, LoadDotEnv("local", "unused"))
		assert.Equal(t, "from-file", os.Getenv("GRADING_TEST_VALUE"))
	})

	t.Run("missing file is an error locally only", func(t *testing.T) {
		t.Setenv("ENV_PATH", filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, LoadDotEnv("local", ""))
		assert.NoError(t, LoadDotEnv("production", ""))
	})
}

func TestGetters(t *testing.T) {
	t.Setenv("GRADING_STR", "")
	assert.Equal(t, "fallback", String("GRADING_STR", "fallback"))
	t.Setenv("GRADING_STR", "set")
	assert.Equal(t, "set", String("GRADING_STR", "fallback"))

	t.Setenv("GRADING_BOOL", "true")
	assert.True(t, Bool("GRADING_BOOL"))
	t.Setenv("GRADING_BOOL", "nope")
	assert.False(t, Bool("GRADING_BOOL"))

	t.Setenv("GRADING_INT", "")
	n, err := Int("GRADING_INT", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	t.Setenv("GRADING_INT", "x")
	_, err = Int("GRADING_INT", 7)
	assert.ErrorContains(t, err, "invalid GRADING_INT")
}
