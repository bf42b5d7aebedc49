package seed_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/stevemurr/mockdb/medium"
	"github.com/stevemurr/mockdb/recordstore"
	"github.com/stevemurr/mockdb/seed"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const sample = `
collections:
  users:
    - id: "1"
      name: Alice
      age: 30
    - id: "2"
      name: Bob
      tags: [admin, ops]
  cards:
    - id: c1
      title: Write docs
      status: todo
      meta:
        points: 3
`

func TestParseAndApply(t *testing.T) {
	f, err := seed.Parse(strings.NewReader(sample))
	require.NoError(t, err)

	m := medium.NewMemoryMedium()
	counts, err := seed.Apply(context.Background(), m, f, nil, recordstore.WithTimeout(0))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"users": 2, "cards": 1}, counts)

	users, err := recordstore.New[recordstore.Document](m, "users", recordstore.WithTimeout(0)).List()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "1", users[0].RecordID())
	assert.Equal(t, "Alice", users[0]["name"])
	assert.Equal(t, float64(30), users[0]["age"])
	assert.Equal(t, []any{"admin", "ops"}, users[1]["tags"])

	raw, ok, err := m.GetItem("cards")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"c1","title":"Write docs","status":"todo","meta":{"points":3}}]`, raw)
}

func TestParseRejectsMissingID(t *testing.T) {
	_, err := seed.Parse(strings.NewReader("collections:\n  users:\n    - name: Alice\n"))
	assert.Error(t, err)

	// Unquoted numbers decode as ints, not string ids.
	_, err = seed.Parse(strings.NewReader("collections:\n  users:\n    - id: 1\n"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	f, err := seed.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Collections)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	f, err := seed.LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Collections, 2)

	_, err = seed.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyStopsWhenFull(t *testing.T) {
	f, err := seed.Parse(strings.NewReader(sample))
	require.NoError(t, err)

	m := medium.NewMemoryMedium()
	require.NoError(t, m.SetItem("blob", strings.Repeat("x", 64)))
	_, err = seed.Apply(context.Background(), m, f, nil,
		recordstore.WithTimeout(0), recordstore.WithCapacity(32))
	assert.ErrorIs(t, err, recordstore.ErrStorageFull)
}
