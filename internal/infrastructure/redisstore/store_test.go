package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conv "github.com/tradepost/tradepost/internal/domain/conversation"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, time.Hour), mr
}

func TestGetMissingReturnsNil(t *testing.T) {
	store, _ := newStore(t)
	sess, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestPutGetRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	sess := &conv.Session{
		PrincipalID: 7,
		Kind:        conv.KindListingCreate,
		State:       conv.StatePhotos,
		Payload: conv.Payload{
			"title":  "old bike",
			"price":  49.99,
			"photos": []string{"a", "b"},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, conv.KindListingCreate, got.Kind)
	assert.Equal(t, conv.StatePhotos, got.State)
	assert.Equal(t, "old bike", got.Payload.String("title"))
	price, ok := got.Payload.Float("price")
	require.True(t, ok)
	assert.InDelta(t, 49.99, price, 0.001)
	assert.Equal(t, []string{"a", "b"}, got.Payload.Strings("photos"))
}

func TestPutOverwritesExistingSession(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &conv.Session{PrincipalID: 7, Kind: conv.KindSearch, State: conv.StateKeyword, Payload: conv.Payload{}}))
	require.NoError(t, store.Put(ctx, &conv.Session{PrincipalID: 7, Kind: conv.KindMessaging, State: conv.StateBody, Payload: conv.Payload{}}))

	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, conv.KindMessaging, got.Kind)
}

func TestSessionExpires(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &conv.Session{PrincipalID: 7, Kind: conv.KindSearch, State: conv.StateKeyword, Payload: conv.Payload{}}))
	mr.FastForward(2 * time.Hour)

	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelete(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &conv.Session{PrincipalID: 7, Kind: conv.KindSearch, State: conv.StateKeyword, Payload: conv.Payload{}}))
	require.NoError(t, store.Delete(ctx, 7))

	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}
