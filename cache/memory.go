package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dbchain/data/db"
)

// MemoryConfig 进程内查询缓存配置。
type MemoryConfig struct {
	// MaxSize 最大条目数，默认 1024。
	MaxSize int
	// TTL 条目过期时间，默认 5 分钟。
	TTL time.Duration
}

// Memory 进程内查询缓存。
// 按表失效通过表级代号实现：失效使代号自增，旧代号下的条目
// 从此不再被读到，由容量上限与 TTL 自然淘汰。
type Memory struct {
	engine *Cache[string, []db.Record]

	mu   sync.Mutex
	gens map[string]uint64
}

var _ IQueryCache = (*Memory)(nil)

// NewMemory 创建进程内查询缓存。
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &Memory{
		engine: New[string, []db.Record](Config{
			Name:    "query",
			MaxSize: cfg.MaxSize,
			TTL:     cfg.TTL,
		}),
		gens: make(map[string]uint64),
	}
}

func (m *Memory) GetRows(_ context.Context, table, key string) ([]db.Record, bool) {
	rows, found := m.engine.Get(m.entryKey(table, key))
	if !found {
		return nil, false
	}
	return cloneRows(rows), true
}

func (m *Memory) SetRows(_ context.Context, table, key string, rows []db.Record) {
	m.engine.Set(m.entryKey(table, key), cloneRows(rows))
}

func (m *Memory) Invalidate(_ context.Context, table string) {
	m.mu.Lock()
	m.gens[table]++
	m.mu.Unlock()
}

func (m *Memory) Close() error {
	m.engine.Clear()
	return nil
}

// Stats 返回底层引擎的统计信息。
func (m *Memory) Stats() CacheStats {
	return m.engine.Stats()
}

func (m *Memory) entryKey(table, key string) string {
	m.mu.Lock()
	gen := m.gens[table]
	m.mu.Unlock()
	return fmt.Sprintf("%s:%d:%s", table, gen, key)
}
