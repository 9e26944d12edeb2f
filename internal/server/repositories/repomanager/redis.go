package repomanager

import (
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/refreshslots"
	"github.com/redis/go-redis/v9"
)

// RedisRepositoryManager keeps users and migrations in PostgreSQL and stores
// refresh slots in Redis. The DBTX handed to RefreshSlots is ignored.
type RedisRepositoryManager struct {
	PostgresRepositoryManager
	slots *refreshslots.RedisRepository
}

func NewRedisRepositoryManager(rdb redis.UniversalClient) *RedisRepositoryManager {
	return &RedisRepositoryManager{slots: refreshslots.NewRedisRepository(rdb, "")}
}

func (m *RedisRepositoryManager) RefreshSlots(dbx.DBTX) refreshslots.Repository {
	return m.slots
}
