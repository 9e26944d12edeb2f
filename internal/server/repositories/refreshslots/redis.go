package refreshslots

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// Slots are Redis hashes; times are unix nanoseconds.
const (
	fieldCurrentToken      = "current_token"
	fieldCurrentExpiresAt  = "current_expires_at"
	fieldPreviousToken     = "previous_token"
	fieldPreviousExpiresAt = "previous_expires_at"
	fieldUpdatedAt         = "updated_at"
)

const createSlotScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "current_token", ARGV[1], "current_expires_at", ARGV[2],
  "previous_token", ARGV[3], "previous_expires_at", ARGV[4],
  "updated_at", ARGV[5])
return 1
`

var createSlotLua = redis.NewScript(createSlotScript)

const casSlotScript = `
local cur = redis.call("HGET", KEYS[1], "current_token")
if not cur or cur ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1],
  "current_token", ARGV[2], "current_expires_at", ARGV[3],
  "previous_token", ARGV[4], "previous_expires_at", ARGV[5],
  "updated_at", ARGV[6])
return 1
`

var casSlotLua = redis.NewScript(casSlotScript)

// RedisRepository stores slots in Redis. Create and CompareAndSwap are Lua
// scripts so the check and the write happen atomically on the server.
type RedisRepository struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisRepository returns a repository using keys "<prefix>:<userID>".
func NewRedisRepository(rdb redis.UniversalClient, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "tokenkeeper:refresh"
	}
	return &RedisRepository{rdb: rdb, prefix: prefix}
}

func (r *RedisRepository) key(userID string) string {
	return r.prefix + ":" + userID
}

func (r *RedisRepository) Get(ctx context.Context, userID string) (*models.RefreshSlot, error) {
	m, err := r.rdb.HGetAll(ctx, r.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(m) == 0 {
		return nil, common.ErrorNotFound
	}

	slot := &models.RefreshSlot{UserID: userID, Current: models.TokenRecord{Token: m[fieldCurrentToken]}}
	if slot.Current.ExpiresAt, err = parseNanos(m[fieldCurrentExpiresAt]); err != nil {
		return nil, err
	}
	if slot.UpdatedAt, err = parseNanos(m[fieldUpdatedAt]); err != nil {
		return nil, err
	}
	if tok := m[fieldPreviousToken]; tok != "" {
		exp, err := parseNanos(m[fieldPreviousExpiresAt])
		if err != nil {
			return nil, err
		}
		slot.Previous = &models.TokenRecord{Token: tok, ExpiresAt: exp}
	}
	return slot, nil
}

func (r *RedisRepository) Create(ctx context.Context, slot *models.RefreshSlot) error {
	n, err := createSlotLua.Run(ctx, r.rdb, []string{r.key(slot.UserID)}, slotArgs(slot)...).Int()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if n == 0 {
		return common.ErrorAlreadyExists
	}
	return nil
}

func (r *RedisRepository) CompareAndSwap(ctx context.Context, expectedCurrent string, slot *models.RefreshSlot) (bool, error) {
	args := append([]any{expectedCurrent}, slotArgs(slot)...)
	n, err := casSlotLua.Run(ctx, r.rdb, []string{r.key(slot.UserID)}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n == 1, nil
}

func slotArgs(slot *models.RefreshSlot) []any {
	prevToken, prevExpires := "", ""
	if slot.Previous != nil {
		prevToken = slot.Previous.Token
		prevExpires = formatNanos(slot.Previous.ExpiresAt)
	}
	return []any{
		slot.Current.Token, formatNanos(slot.Current.ExpiresAt),
		prevToken, prevExpires,
		formatNanos(slot.UpdatedAt),
	}
}

func formatNanos(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseNanos(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("redis error: missing timestamp")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("redis error: bad timestamp %q: %w", s, err)
	}
	return time.Unix(0, n).UTC(), nil
}
