// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "review_queue.json")
}

func TestAddAndReload(t *testing.T) {
	path := queuePath(t)
	q, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, q.Add(Item{
		ID:     "a1b2c3d4e5f6",
		Title:  "Some Song",
		Artist: "Some Artist",
		Reason: "no catalog match",
		Stage:  "selection",
		Query:  "some artist some song",
	}))

	reloaded, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.Len())

	pending := reloaded.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "Some Song", pending[0].Title)
	assert.Equal(t, "no catalog match", pending[0].Reason)
	assert.False(t, pending[0].AddedAt.IsZero())
}

func TestDuplicateAddIsNoOp(t *testing.T) {
	q, err := Open(queuePath(t))
	require.NoError(t, err)

	item := Item{ID: "a1b2c3d4e5f6", Title: "Some Song", Reason: "no catalog match"}
	require.NoError(t, q.Add(item))
	require.NoError(t, q.Add(item))
	require.NoError(t, q.Add(Item{ID: "a1b2c3d4e5f6", Title: "renamed", Reason: "other"}))

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, "Some Song", q.Pending()[0].Title)
}

func TestResolveKeepsItem(t *testing.T) {
	path := queuePath(t)
	q, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, q.Add(Item{ID: "a1b2c3d4e5f6", Title: "Some Song"}))
	require.NoError(t, q.Resolve("a1b2c3d4e5f6", "matched manually to catalog id 99"))

	assert.Equal(t, 0, q.PendingCount())
	assert.Equal(t, 1, q.ResolvedCount())
	assert.Equal(t, 1, q.Len())

	reloaded, err := Open(path)
	require.NoError(t, err)
	resolved := reloaded.Resolved()
	require.Len(t, resolved, 1)
	assert.Equal(t, "matched manually to catalog id 99", resolved[0].Resolution)
	assert.False(t, resolved[0].ResolvedAt.IsZero())
}

func TestResolveUnknownIDFails(t *testing.T) {
	q, err := Open(queuePath(t))
	require.NoError(t, err)

	assert.Error(t, q.Resolve("missing", "whatever"))
}

func TestResolvedItemStillBlocksReAdd(t *testing.T) {
	q, err := Open(queuePath(t))
	require.NoError(t, err)

	require.NoError(t, q.Add(Item{ID: "a1b2c3d4e5f6", Title: "Some Song"}))
	require.NoError(t, q.Resolve("a1b2c3d4e5f6", "done"))
	require.NoError(t, q.Add(Item{ID: "a1b2c3d4e5f6", Title: "Some Song"}))

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 0, q.PendingCount())
	assert.True(t, q.Has("a1b2c3d4e5f6"))
}

func TestPendingPreservesInsertionOrder(t *testing.T) {
	q, err := Open(queuePath(t))
	require.NoError(t, err)

	require.NoError(t, q.Add(Item{ID: "id-1", Title: "first"}))
	require.NoError(t, q.Add(Item{ID: "id-2", Title: "second"}))
	require.NoError(t, q.Add(Item{ID: "id-3", Title: "third"}))
	require.NoError(t, q.Resolve("id-2", "fixed"))

	pending := q.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "first", pending[0].Title)
	assert.Equal(t, "third", pending[1].Title)
}
