package refreshslots

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) *RedisRepository {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRepository(rdb, "")
}

func backends(t *testing.T) map[string]Repository {
	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"redis":  newRedisRepo(t),
	}
}

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestRepository_CreateGet(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Get(ctx, "u1")
			assert.ErrorIs(t, err, common.ErrorNotFound)

			slot := &models.RefreshSlot{
				UserID:    "u1",
				Current:   models.TokenRecord{Token: "t1", ExpiresAt: t0.Add(time.Hour)},
				UpdatedAt: t0,
			}
			require.NoError(t, repo.Create(ctx, slot))

			got, err := repo.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "t1", got.Current.Token)
			assert.True(t, got.Current.ExpiresAt.Equal(t0.Add(time.Hour)))
			assert.True(t, got.UpdatedAt.Equal(t0))
			assert.Nil(t, got.Previous)

			other := &models.RefreshSlot{UserID: "u1", Current: models.TokenRecord{Token: "t-other", ExpiresAt: t0}, UpdatedAt: t0}
			assert.ErrorIs(t, repo.Create(ctx, other), common.ErrorAlreadyExists)

			got, err = repo.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "t1", got.Current.Token, "create must not overwrite")
		})
	}
}

func TestRepository_CompareAndSwap(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, &models.RefreshSlot{
				UserID: "u1", Current: models.TokenRecord{Token: "t1", ExpiresAt: t0.Add(time.Hour)}, UpdatedAt: t0,
			}))

			next := &models.RefreshSlot{
				UserID:    "u1",
				Current:   models.TokenRecord{Token: "t2", ExpiresAt: t0.Add(2 * time.Hour)},
				Previous:  &models.TokenRecord{Token: "t1", ExpiresAt: t0.Add(time.Minute)},
				UpdatedAt: t0.Add(time.Second),
			}

			ok, err := repo.CompareAndSwap(ctx, "stale", next)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = repo.CompareAndSwap(ctx, "t1", next)
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := repo.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "t2", got.Current.Token)
			require.NotNil(t, got.Previous)
			assert.Equal(t, "t1", got.Previous.Token)
			assert.True(t, got.Previous.ExpiresAt.Equal(t0.Add(time.Minute)))

			ok, err = repo.CompareAndSwap(ctx, "t1", next)
			require.NoError(t, err)
			assert.False(t, ok, "second swap on the same expected token must lose")

			missing := next.Clone()
			missing.UserID = "nobody"
			ok, err = repo.CompareAndSwap(ctx, "t1", missing)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRepository_ConcurrentSwapSingleWinner(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, &models.RefreshSlot{
				UserID: "u1", Current: models.TokenRecord{Token: "t1", ExpiresAt: t0.Add(time.Hour)}, UpdatedAt: t0,
			}))

			const workers = 16
			var wins atomic.Int32
			var wg sync.WaitGroup
			start := make(chan struct{})

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					ok, err := repo.CompareAndSwap(ctx, "t1", &models.RefreshSlot{
						UserID:    "u1",
						Current:   models.TokenRecord{Token: string(rune('a' + i)), ExpiresAt: t0.Add(time.Hour)},
						UpdatedAt: t0,
					})
					if err == nil && ok {
						wins.Add(1)
					}
				}(i)
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	slot := &models.RefreshSlot{UserID: "u1", Current: models.TokenRecord{Token: "t1"}}
	require.NoError(t, repo.Create(ctx, slot))

	slot.Current.Token = "mutated"
	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.Current.Token)
}
