// Package sqlexec 把链式查询的状态编译为 SQL 并在数据库连接上执行。
//
// 执行器是 chain.IExecutor 的标准实现：语句以 `?` 占位拼装，由方言
// 统一重绑定；标识符一律经过安全校验与方言引用。查询结果可经
// IQueryCache 做读穿缓存，写入成功后按表失效；每次语句执行都会
// 生成观测事件分发给已注册的钩子。数据库返回的错误不做任何包装。
package sqlexec

import (
	"context"
	"database/sql"
	"time"

	"dbchain/cache"
	"dbchain/chain"
	core "dbchain/data/db"
	"dbchain/data/db/dialect"
	"dbchain/logging"
	"dbchain/monitor"
)

// Option 执行器可选配置。
type Option func(*Executor)

// WithHooks 追加查询观测钩子，按注册顺序在每次语句执行后调用。
func WithHooks(hooks ...monitor.IQueryHook) Option {
	return func(e *Executor) {
		e.hooks = append(e.hooks, hooks...)
	}
}

// WithLogger 追加把每条语句写入结构化日志的观测钩子。
func WithLogger(logger logging.Logger) Option {
	return func(e *Executor) {
		e.hooks = append(e.hooks, monitor.NewLogHook(logger))
	}
}

// WithCache 启用查询结果缓存，只作用于 Select。
func WithCache(c cache.IQueryCache) Option {
	return func(e *Executor) {
		e.cache = c
	}
}

// Executor 基于 IDatabase 的语句执行器。
type Executor struct {
	db      core.IDatabase
	dialect dialect.Dialect
	cfg     core.DBConfig
	hooks   []monitor.IQueryHook
	cache   cache.IQueryCache
}

// New 创建执行器，方言由底层连接推断。
func New(database core.IDatabase, cfg core.DBConfig, opts ...Option) *Executor {
	e := &Executor{
		db:      database,
		dialect: dialect.FromDatabase(database),
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Select 执行查询并返回结果行。
// 启用缓存时按表与语句指纹读穿，命中不触达数据库。
func (e *Executor) Select(ctx context.Context, req chain.SelectRequest) ([]core.Record, error) {
	query, args := compileSelect(e.dialect, req)

	var key string
	if e.cache != nil && req.Table != "" {
		key = cache.Fingerprint(query, args)
		if rows, ok := e.cache.GetRows(ctx, req.Table, key); ok {
			e.observe(ctx, monitor.OpSelect, req.Table, query, args, 0, nil, true)
			return rows, nil
		}
	}

	start := time.Now()
	rows, err := e.queryRecords(ctx, query, args)
	e.observe(ctx, monitor.OpSelect, req.Table, query, args, time.Since(start), err, false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil && req.Table != "" {
		e.cache.SetRows(ctx, req.Table, key, rows)
	}
	return rows, nil
}

// Count 按条件统计行数。
func (e *Executor) Count(ctx context.Context, table string, where []chain.CondGroup) (int64, error) {
	query, args := compileCount(e.dialect, table, where)

	start := time.Now()
	var total int64
	err := e.db.QueryRow(ctx, query, args...).Scan(&total)
	e.observe(ctx, monitor.OpCount, table, query, args, time.Since(start), err, false)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Insert 插入单条记录。
func (e *Executor) Insert(ctx context.Context, table string, record core.Record) (sql.Result, error) {
	query, args := compileInsert(e.dialect, table, []core.Record{record})
	return e.execStatement(ctx, monitor.OpInsert, table, query, args)
}

// InsertBatch 以多行 VALUES 批量插入记录。
func (e *Executor) InsertBatch(ctx context.Context, table string, records []core.Record) (sql.Result, error) {
	query, args := compileInsert(e.dialect, table, records)
	return e.execStatement(ctx, monitor.OpInsert, table, query, args)
}

// Update 按条件更新并返回受影响行数。
func (e *Executor) Update(ctx context.Context, table string, data core.Record, where []chain.CondGroup) (int64, error) {
	query, args := compileUpdate(e.dialect, table, data, where)
	result, err := e.execStatement(ctx, monitor.OpUpdate, table, query, args)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Delete 按条件删除并返回受影响行数。
func (e *Executor) Delete(ctx context.Context, table string, where []chain.CondGroup) (int64, error) {
	query, args := compileDelete(e.dialect, table, where)
	result, err := e.execStatement(ctx, monitor.OpDelete, table, query, args)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Config 返回底层连接配置。
func (e *Executor) Config() core.DBConfig {
	return e.cfg
}

// execStatement 执行写语句，成功后使该表的缓存失效。
func (e *Executor) execStatement(ctx context.Context, op monitor.Op, table, query string, args []any) (sql.Result, error) {
	start := time.Now()
	result, err := e.db.Exec(ctx, query, args...)
	e.observe(ctx, op, table, query, args, time.Since(start), err, false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil && table != "" {
		e.cache.Invalidate(ctx, table)
	}
	return result, nil
}

// queryRecords 执行查询并把结果行扫描为通用记录。
// mysql 驱动对文本列返回 []byte，这里统一转为 string。
func (e *Executor) queryRecords(ctx context.Context, query string, args []any) ([]core.Record, error) {
	rows, err := e.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := make([]core.Record, 0, 16)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		record := make(core.Record, len(columns))
		for i, column := range columns {
			value := values[i]
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			record[column] = value
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// observe 为一次语句执行生成观测事件并分发给全部钩子。
func (e *Executor) observe(ctx context.Context, op monitor.Op, table, query string, args []any, elapsed time.Duration, err error, cached bool) {
	if len(e.hooks) == 0 {
		return
	}
	event := monitor.NewEvent(op, table, query, args)
	event.Duration = elapsed
	event.Cached = cached
	if err != nil {
		event.Error = err.Error()
	}
	for _, hook := range e.hooks {
		hook.OnQuery(ctx, event)
	}
}
