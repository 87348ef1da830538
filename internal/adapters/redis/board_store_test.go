package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/convenios-ui/internal/domain/board"
	"github.com/target/convenios-ui/internal/ports"
	"github.com/target/convenios-ui/internal/testutil"
)

func sampleState(t *testing.T) board.State {
	t.Helper()
	b, err := board.New([]board.Column{
		{ID: "obras", Title: "Obras Urbanas", Items: []board.WorkItem{{
			ID: "c1", Number: "CT-2023-001", ValueCents: 125_000_000,
			EndDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Status: board.StatusInProgress,
			DepartmentLabel: "Obras Urbanas",
		}}},
		{ID: "turismo", Title: "Turismo"},
	})
	require.NoError(t, err)
	return board.State{
		Board: b,
		Pending: &board.Drag{
			Token: "drag-1", ItemID: "c1", FromColumnID: "obras",
			StartedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}
}

func TestBoardStore_SaveAndLoad(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	store := NewBoardStore(client, 10*time.Minute)
	ctx := context.Background()

	st := sampleState(t)
	require.NoError(t, store.Save(ctx, "key-1", st))

	got, err := store.Load(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, st, got)
	assert.Equal(t, 10*time.Minute, mr.TTL("convenios:board:key-1"))
}

func TestBoardStore_Missing(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	store := NewBoardStore(client, 0)

	_, err := store.Load(context.Background(), "nope")
	require.ErrorIs(t, err, ports.ErrStateNotFound)
	require.Error(t, store.Save(context.Background(), "", board.State{}))
}

func TestBoardStore_ExpiresAndDeletes(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	store := NewBoardStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", sampleState(t)))
	mr.FastForward(2 * time.Minute)
	_, err := store.Load(ctx, "a")
	require.ErrorIs(t, err, ports.ErrStateNotFound)

	require.NoError(t, store.Save(ctx, "b", sampleState(t)))
	require.NoError(t, store.Delete(ctx, "b"))
	_, err = store.Load(ctx, "b")
	require.ErrorIs(t, err, ports.ErrStateNotFound)
}
