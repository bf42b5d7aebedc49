package medium_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/mockdb/medium"
)

// runMediumTests runs a common test suite against any Medium implementation.
func runMediumTests(t *testing.T, m medium.Medium) {
	t.Helper()

	t.Run("GetItem missing", func(t *testing.T) {
		v, ok, err := m.GetItem("nope")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("SetItem and GetItem", func(t *testing.T) {
		require.NoError(t, m.SetItem("users", `[{"id":"1"}]`))
		v, ok, err := m.GetItem("users")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `[{"id":"1"}]`, v)
	})

	t.Run("SetItem overwrites", func(t *testing.T) {
		require.NoError(t, m.SetItem("users", `[]`))
		v, ok, err := m.GetItem("users")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `[]`, v)
	})

	t.Run("empty value is present", func(t *testing.T) {
		require.NoError(t, m.SetItem("blank", ""))
		_, ok, err := m.GetItem("blank")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Keys sorted", func(t *testing.T) {
		require.NoError(t, m.SetItem("cards", `[]`))
		keys, err := m.Keys()
		require.NoError(t, err)
		assert.Equal(t, []string{"blank", "cards", "users"}, keys)
	})

	t.Run("Usage", func(t *testing.T) {
		// {"blank":"","cards":"[]","users":"[]"}
		n, err := medium.Usage(m)
		require.NoError(t, err)
		assert.Equal(t, len(`{"blank":"","cards":"[]","users":"[]"}`), n)
	})

	t.Run("underscore keys are listed and counted", func(t *testing.T) {
		before, err := medium.Usage(m)
		require.NoError(t, err)
		require.NoError(t, m.SetItem("_blob", "xxxx"))

		keys, err := m.Keys()
		require.NoError(t, err)
		assert.Contains(t, keys, "_blob")

		after, err := medium.Usage(m)
		require.NoError(t, err)
		assert.Equal(t, before+len(`,"_blob":"xxxx"`), after)

		existed, err := m.RemoveItem("_blob")
		require.NoError(t, err)
		assert.True(t, existed)
	})

	t.Run("RemoveItem existing", func(t *testing.T) {
		existed, err := m.RemoveItem("blank")
		require.NoError(t, err)
		assert.True(t, existed)
		_, ok, err := m.GetItem("blank")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RemoveItem missing", func(t *testing.T) {
		existed, err := m.RemoveItem("blank")
		require.NoError(t, err)
		assert.False(t, existed)
	})
}

func TestMemoryMedium(t *testing.T) {
	runMediumTests(t, medium.NewMemoryMedium())
}

func TestFileMedium(t *testing.T) {
	m, err := medium.NewFileMedium(t.TempDir())
	require.NoError(t, err)
	runMediumTests(t, m)
}

func TestSqliteMedium(t *testing.T) {
	for _, driver := range []string{medium.DriverCgo, medium.DriverPure} {
		t.Run(driver, func(t *testing.T) {
			m, err := medium.NewSqliteMedium(driver, filepath.Join(t.TempDir(), "test.db"))
			require.NoError(t, err)
			defer m.Close()
			runMediumTests(t, m)
		})
	}
}

func TestUsageEmpty(t *testing.T) {
	n, err := medium.Usage(medium.NewMemoryMedium())
	require.NoError(t, err)
	assert.Equal(t, len(`{}`), n)
}

func TestUsageDoesNotEscapeHTML(t *testing.T) {
	m := medium.NewMemoryMedium()
	require.NoError(t, m.SetItem("k", "<&>"))
	n, err := medium.Usage(m)
	require.NoError(t, err)
	assert.Equal(t, len(`{"k":"<&>"}`), n)
}

func TestFileMediumLayout(t *testing.T) {
	dir := t.TempDir()
	m, err := medium.NewFileMedium(dir)
	require.NoError(t, err)

	require.NoError(t, m.SetItem("a", `[{"id":"1"}]`))
	require.NoError(t, m.SetItem("b", `[]`))

	raw, err := os.ReadFile(filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, string(raw))

	// Every .json file is a key; other files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_meta.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	keys, err := m.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"_meta", "a", "b"}, keys)
}

func TestFileMediumRejectsPathKeys(t *testing.T) {
	m, err := medium.NewFileMedium(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"", "..", "a/b", `a\b`} {
		assert.Error(t, m.SetItem(key, "x"), "key %q", key)
	}
}

func TestFactory(t *testing.T) {
	dir := t.TempDir()

	for _, backend := range []string{"file", "sqlite", "sqlite-pure", "memory", ""} {
		t.Run(backend, func(t *testing.T) {
			m, err := medium.New(backend, filepath.Join(dir, backend))
			require.NoError(t, err)
			require.NotNil(t, m)
			if c, ok := m.(interface{ Close() error }); ok {
				c.Close()
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := medium.New("redis", dir)
		assert.Error(t, err)
	})
}
