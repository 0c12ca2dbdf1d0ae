package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/internal/cache"
	"github.com/BaSui01/devcrew/types"
)

func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Messages(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Note(ctx, "s1", "plan")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	first := types.NewMessage("user", "planner", "build it").WithMetadata(types.MetaTaskID, "s1")
	second := types.NewMessage("planner", "coder", "step 1")
	require.NoError(t, store.AppendMessage(ctx, "s1", first))
	require.NoError(t, store.AppendMessage(ctx, "s1", second))

	msgs, err := store.Messages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "build it", msgs[0].Content)
	assert.Equal(t, "s1", msgs[0].Metadata[types.MetaTaskID])
	assert.Equal(t, "coder", msgs[1].Recipient)

	_, err = store.Note(ctx, "s1", "plan")
	assert.ErrorIs(t, err, ErrNoteNotFound)

	require.NoError(t, store.SaveNote(ctx, "s1", "plan", "v1"))
	require.NoError(t, store.SaveNote(ctx, "s1", "plan", "v2"))
	note, err := store.Note(ctx, "s1", "plan")
	require.NoError(t, err)
	assert.Equal(t, "v2", note)

	require.NoError(t, store.Clear(ctx, "s1"))
	_, err = store.Messages(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestInMemoryStore(t *testing.T) {
	runStoreContract(t, NewInMemoryStore(0))
}

func TestInMemoryStore_MaxMessages(t *testing.T) {
	store := NewInMemoryStore(2)
	ctx := context.Background()
	for _, c := range []string{"a", "b", "c"} {
		require.NoError(t, store.AppendMessage(ctx, "s", types.NewMessage("x", "y", c)))
	}

	msgs, err := store.Messages(ctx, "s")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "b", msgs[0].Content)
	assert.Equal(t, "c", msgs[1].Content)
}

func TestInMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewInMemoryStore(0).AppendMessage(ctx, "s", types.Message{}), context.Canceled)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore(t *testing.T) {
	_, client := newTestRedis(t)
	runStoreContract(t, NewRedisStore(client, RedisOptions{KeyPrefix: "test"}, zap.NewNop()))
}

func TestRedisStore_TrimAndTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, RedisOptions{KeyPrefix: "t", TTL: time.Minute, MaxMessages: 2}, nil)
	ctx := context.Background()

	for _, c := range []string{"a", "b", "c"} {
		require.NoError(t, store.AppendMessage(ctx, "s", types.NewMessage("x", "y", c)))
	}
	msgs, err := store.Messages(ctx, "s")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "b", msgs[0].Content)

	assert.Equal(t, time.Minute, mr.TTL("t:session:s:messages"))

	mr.FastForward(2 * time.Minute)
	_, err = store.Messages(ctx, "s")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	store, err := NewStore(ctx, Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = NewStore(ctx, Config{Type: TypeMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &InMemoryStore{}, store)

	mr, _ := newTestRedis(t)
	redisCfg := cache.DefaultConfig()
	redisCfg.Addr = mr.Addr()
	store, err = NewStore(ctx, Config{Type: TypeRedis, Redis: redisCfg}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, store)

	_, err = NewStore(ctx, Config{Type: "mongo"}, nil)
	assert.Error(t, err)
}

func TestClose_ReleasesRedisClient(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Close(nil))
	assert.NoError(t, Close(NewInMemoryStore(0)))

	mr, _ := newTestRedis(t)
	redisCfg := cache.DefaultConfig()
	redisCfg.Addr = mr.Addr()
	store, err := NewStore(ctx, Config{Type: TypeRedis, Redis: redisCfg}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, Close(store))
	err = store.AppendMessage(ctx, "s", types.NewMessage("x", "y", "z"))
	assert.ErrorContains(t, err, "closed")
}
