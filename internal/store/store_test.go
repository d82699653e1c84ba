package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "decisions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AppendAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, Record{
			SessionID:  "sess-1",
			Turn:       i,
			RawInput:   fmt.Sprintf("input %d", i),
			Normalized: fmt.Sprintf("input %d", i),
			Tier:       i % 3,
			Kind:       "select",
		}))
	}
	require.NoError(t, s.Append(ctx, Record{
		SessionID: "sess-2", Turn: 0, RawInput: "other", Normalized: "other",
		Tier: 6, Kind: "defer_to_retrieval",
	}))

	recent, err := s.Recent(ctx, "sess-1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, 4, recent[0].Turn, "newest first")
	assert.Equal(t, "input 4", recent[0].RawInput)
	for _, r := range recent {
		assert.Equal(t, "sess-1", r.SessionID)
		assert.False(t, r.CreatedAt.IsZero())
	}
}

func TestStore_TierCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tiers := []int{0, 3, 3, 5, 6, 6, 6}
	for i, tier := range tiers {
		require.NoError(t, s.Append(ctx, Record{
			SessionID: "s", Turn: i, RawInput: "x", Normalized: "x",
			Tier: tier, Kind: "ask_clarify",
		}))
	}

	counts, err := s.TierCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[0])
	assert.Equal(t, int64(2), counts[3])
	assert.Equal(t, int64(3), counts[6])
}

func TestStore_Prune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, Record{
		SessionID: "s", Turn: 0, RawInput: "old", Normalized: "old",
		Tier: 6, Kind: "defer_to_retrieval",
		CreatedAt: time.Now().UTC().AddDate(0, 0, -40),
	}))
	require.NoError(t, s.Append(ctx, Record{
		SessionID: "s", Turn: 1, RawInput: "new", Normalized: "new",
		Tier: 6, Kind: "defer_to_retrieval",
	}))

	removed, err := s.Prune(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	recent, err := s.Recent(ctx, "s", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "new", recent[0].RawInput)

	// Zero retention never deletes.
	removed, err = s.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStore_MigrateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), Record{
		SessionID: "s", Turn: 0, RawInput: "x", Normalized: "x", Tier: 6, Kind: "k",
	}))
	require.NoError(t, s.Close())

	// Reopening runs the migration again against existing tables.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	recent, err := s.Recent(context.Background(), "s", 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
	assert.NoError(t, s.Health(context.Background()))
}
