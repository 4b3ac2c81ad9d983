package store

import (
	"context"
	"sync"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/data/redisStore"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
)

const lockKeyPrefix = "ingest-lock:"

// InMemoryIngestLock serialises ingestion per topic inside one process.
type InMemoryIngestLock struct {
	mu     sync.Mutex
	owners map[string]string
}

func NewInMemoryIngestLock() *InMemoryIngestLock {
	return &InMemoryIngestLock{owners: make(map[string]string)}
}

func (l *InMemoryIngestLock) TryLock(ctx context.Context, topic string, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.owners[topic]; held {
		return false, nil
	}
	l.owners[topic] = owner
	return true, nil
}

func (l *InMemoryIngestLock) Unlock(ctx context.Context, topic string, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners[topic] == owner {
		delete(l.owners, topic)
	}
	return nil
}

// RedisIngestLock serialises ingestion per topic across processes, so the
// server and the ingest command never write the same topic at once. A lock
// expires after RedisIngestLockTTL if its holder dies.
type RedisIngestLock struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisIngestLock(ctx context.Context, opts redisStore.Options) (*RedisIngestLock, error) {
	s, err := redisStore.GetRedisStore(ctx, opts, config.RedisIngestLocks)
	if err != nil {
		return nil, err
	}
	return NewRedisIngestLock(s), nil
}

func NewRedisIngestLock(s *redisStore.Store) *RedisIngestLock {
	return &RedisIngestLock{store: s, logger: logger_i.NewLogger("ingest_lock")}
}

func (l *RedisIngestLock) TryLock(ctx context.Context, topic string, owner string) (bool, error) {
	ok, err := l.store.SetNX(ctx, lockKeyPrefix+topic, owner, config.RedisIngestLockTTL)
	if err != nil {
		return false, ragErrors.FromProvider("ingest_lock", err)
	}
	l.logger.WithTrace(ctx, config.TRACE_ID_KEY).Debug("Ingest lock attempt", "topic", topic, "acquired", ok)
	return ok, nil
}

func (l *RedisIngestLock) Unlock(ctx context.Context, topic string, owner string) error {
	released, err := l.store.DelIfEquals(ctx, lockKeyPrefix+topic, owner)
	if err != nil {
		return ragErrors.FromProvider("ingest_lock", err)
	}
	if !released {
		l.logger.Warn("Ingest lock was no longer held by its owner", "topic", topic, "owner", owner)
	}
	return nil
}
