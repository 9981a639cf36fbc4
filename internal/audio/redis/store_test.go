package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/doctech/internal/audio"
	"github.com/nadzzz/doctech/internal/audio/audiotest"
	"github.com/nadzzz/doctech/internal/audio/redis"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewFromClient(client, opts...), mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newStore(t)
	audiotest.RunStoreContract(t, store)
}

func TestRedisStore_TTLAndPrefix(t *testing.T) {
	store, mr := newStore(t, redis.WithTTL(time.Minute), redis.WithPrefix("test:clip:"))
	ctx := context.Background()

	id, err := store.Put(ctx, audio.Clip{Data: []byte{0xff, 0x00, 0x10}, ContentType: "audio/wav"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:clip:"+id))
	assert.Equal(t, time.Minute, mr.TTL("test:clip:"+id))

	clip, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x00, 0x10}, clip.Data)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, audio.ErrNotFound)
}

func TestRedisStore_Ping(t *testing.T) {
	store, mr := newStore(t)
	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}
