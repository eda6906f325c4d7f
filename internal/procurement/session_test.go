package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func sampleDraft() Draft {
	return Draft{
		Header: Header{
			PONumber:  "PO-202603-AB12CD34",
			BranchID:  "B001",
			OrderDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		Items: []LineItem{{ID: "L001", ProductID: "P001", Quantity: 2, UnitPrice: 35000, TotalPrice: 70000}},
	}
}

func newTestRedisStore(t *testing.T) (*RedisDraftStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisDraftStore(client, time.Hour), mr
}

func draftStores(t *testing.T) map[string]DraftStore {
	redisStore, _ := newTestRedisStore(t)
	return map[string]DraftStore{
		"memory": NewMemoryDraftStore(time.Hour),
		"redis":  redisStore,
	}
}

func TestDraftStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, store := range draftStores(t) {
		t.Run(name, func(t *testing.T) {
			id, created, err := store.Create(ctx, sampleDraft())
			require.NoError(t, err)
			require.NotEmpty(t, id)
			require.EqualValues(t, 1, created.Version)

			loaded, err := store.Get(ctx, id)
			require.NoError(t, err)
			require.Equal(t, created, loaded)

			loaded.Notes = "urgent"
			saved, err := store.Save(ctx, id, loaded)
			require.NoError(t, err)
			require.EqualValues(t, 2, saved.Version)

			again, err := store.Get(ctx, id)
			require.NoError(t, err)
			require.Equal(t, "urgent", again.Notes)
			require.EqualValues(t, 2, again.Version)

			require.NoError(t, store.Delete(ctx, id))
			_, err = store.Get(ctx, id)
			require.ErrorIs(t, err, ErrDraftNotFound)
		})
	}
}

func TestDraftStoreRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	for name, store := range draftStores(t) {
		t.Run(name, func(t *testing.T) {
			id, created, err := store.Create(ctx, sampleDraft())
			require.NoError(t, err)

			_, err = store.Save(ctx, id, created)
			require.NoError(t, err)

			created.Notes = "late write"
			_, err = store.Save(ctx, id, created)
			require.ErrorIs(t, err, ErrDraftConflict)

			current, err := store.Get(ctx, id)
			require.NoError(t, err)
			require.Empty(t, current.Notes)
		})
	}
}

func TestDraftStoreSaveMissingSession(t *testing.T) {
	ctx := context.Background()
	for name, store := range draftStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Save(ctx, "missing", sampleDraft())
			require.ErrorIs(t, err, ErrDraftNotFound)
		})
	}
}

func TestMemoryDraftStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store := NewMemoryDraftStore(30 * time.Minute)
	store.now = func() time.Time { return now }

	id, _, err := store.Create(ctx, sampleDraft())
	require.NoError(t, err)

	now = now.Add(31 * time.Minute)
	_, err = store.Get(ctx, id)
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestRedisDraftStoreExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	id, _, err := store.Create(ctx, sampleDraft())
	require.NoError(t, err)
	require.True(t, mr.Exists(draftKey(id)))

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, id)
	require.ErrorIs(t, err, ErrDraftNotFound)
}

func TestMemoryDraftStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDraftStore(0)

	id, _, err := store.Create(ctx, sampleDraft())
	require.NoError(t, err)

	loaded, err := store.Get(ctx, id)
	require.NoError(t, err)
	loaded.Items[0].Quantity = 99

	again, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 2, again.Items[0].Quantity)
}
