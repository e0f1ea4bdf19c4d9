package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/syndicate/internal/store"
)

// OpenStore opens a fresh SQLite store in a temp dir driven by clock.
// The store is closed when the test finishes.
func OpenStore(t *testing.T, clock *Clock) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(path, store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}
