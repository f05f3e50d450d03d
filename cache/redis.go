package cache

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"dbchain/data/db"
	"dbchain/errors"
	"dbchain/logging"
)

// client 只收拢查询缓存用到的 go-redis 命令子集（便于测试）。
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Close() error
}

// RedisConfig Redis 查询缓存配置。
type RedisConfig struct {
	Client    redis.UniversalClient
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string        // 默认 "dbchain:cache:"
	TTL       time.Duration // 条目过期时间，默认 5 分钟
	Logger    logging.Logger
}

// Redis 基于 Redis 的查询缓存，适合多实例共享结果。
// 结果行以 JSON 存储；表级代号存放在独立键上，失效即 INCR。
// 任何 Redis 故障都按未命中处理并记录日志，查询路径不受影响。
type Redis struct {
	cfg       RedisConfig
	logger    logging.Logger
	client    client
	ownClient bool
}

var _ IQueryCache = (*Redis)(nil)

// NewRedis 创建 Redis 查询缓存。
// 必须提供现成的客户端或地址，不会静默回落到本地实例。
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "dbchain:cache:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "cache.redis"))
	}

	var cl client
	var own bool
	if cfg.Client != nil {
		cl = cfg.Client
	} else {
		if cfg.Addr == "" {
			return nil, errors.NewError(errors.ErrCodeCache, "redis client not configured")
		}
		options := &redis.Options{Addr: cfg.Addr, Username: cfg.Username, Password: cfg.Password, DB: cfg.DB}
		cl = redis.NewClient(options)
		own = true
	}

	return &Redis{cfg: cfg, logger: cfg.Logger, client: cl, ownClient: own}, nil
}

func (r *Redis) GetRows(ctx context.Context, table, key string) ([]db.Record, bool) {
	entryKey, ok := r.entryKey(ctx, table, key)
	if !ok {
		return nil, false
	}
	data, err := r.client.Get(ctx, entryKey).Result()
	if err != nil {
		if !stdErrors.Is(err, redis.Nil) {
			r.logger.Warn(ctx, "read cached rows failed", logging.Error(err))
		}
		return nil, false
	}
	var rows []db.Record
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		// 条目损坏时直接删除，按未命中处理
		r.logger.Warn(ctx, "decode cached rows failed", logging.Error(err))
		r.client.Del(ctx, entryKey)
		return nil, false
	}
	return rows, true
}

func (r *Redis) SetRows(ctx context.Context, table, key string, rows []db.Record) {
	entryKey, ok := r.entryKey(ctx, table, key)
	if !ok {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		r.logger.Warn(ctx, "encode rows failed", logging.Error(err))
		return
	}
	if err := r.client.Set(ctx, entryKey, data, r.cfg.TTL).Err(); err != nil {
		r.logger.Warn(ctx, "write cached rows failed", logging.Error(err))
	}
}

func (r *Redis) Invalidate(ctx context.Context, table string) {
	if err := r.client.Incr(ctx, r.genKey(table)).Err(); err != nil {
		r.logger.Warn(ctx, "invalidate table cache failed",
			logging.String("table", table),
			logging.Error(err))
	}
}

// Close 释放自建的客户端连接，外部传入的客户端由调用方管理。
func (r *Redis) Close() error {
	if r.ownClient && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// entryKey 组合表级代号与语句指纹形成完整键。
// 代号读取失败时放弃本次缓存操作。
func (r *Redis) entryKey(ctx context.Context, table, key string) (string, bool) {
	gen, err := r.client.Get(ctx, r.genKey(table)).Result()
	if err != nil {
		if !stdErrors.Is(err, redis.Nil) {
			r.logger.Warn(ctx, "read table generation failed",
				logging.String("table", table),
				logging.Error(err))
			return "", false
		}
		gen = "0"
	}
	return r.cfg.KeyPrefix + table + ":" + gen + ":" + key, true
}

func (r *Redis) genKey(table string) string {
	return r.cfg.KeyPrefix + "gen:" + table
}
