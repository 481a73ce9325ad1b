package device

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIsIdempotent(t *testing.T) {
	r := NewResolver(NewMemStore())

	first, err := r.Resolve()
	require.NoError(t, err)
	second, err := r.Resolve()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "user_"))
}

func TestResolveSurvivesResolverRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	first, err := NewResolver(NewFileStore(path)).Resolve()
	require.NoError(t, err)

	// a fresh resolver over the same file sees the same identity
	second, err := NewResolver(NewFileStore(path)).Resolve()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClearedStorageRegenerates(t *testing.T) {
	dir := t.TempDir()

	first, err := NewResolver(NewFileStore(filepath.Join(dir, "a.json"))).Resolve()
	require.NoError(t, err)
	second, err := NewResolver(NewFileStore(filepath.Join(dir, "b.json"))).Resolve()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestGenerateIDShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := generateID()
		assert.True(t, strings.HasPrefix(id, "user_"))
		assert.GreaterOrEqual(t, len(id), len("user_")+9)
		seen[id] = true
	}
	assert.Len(t, seen, 100)
}
