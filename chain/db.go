// Package chain 提供链式风格的查询构建入口。
//
// DB 是无状态的查询入口，内部只持有执行器，可作为进程级单例长期
// 共享；每次调用 Query 或 Table 都会派生全新的 *Query，各自累积
// 查询状态，互不干扰，因此并发使用无需加锁。语句的拼装、缓存与
// 观测都由执行器承担，chain 只负责状态累积与参数校验。
package chain

import (
	"context"
	"database/sql"

	"dbchain/data/db"
)

// IExecutor 查询执行抽象，链式构建器的全部终结方法最终委托于此。
// 执行器返回的错误（包括数据库驱动错误）都会原样向上传递。
type IExecutor interface {
	// Select 执行查询并返回结果行。
	Select(ctx context.Context, req SelectRequest) ([]db.Record, error)
	// Count 按条件统计行数。
	Count(ctx context.Context, table string, where []CondGroup) (int64, error)
	// Insert 插入单条记录。
	Insert(ctx context.Context, table string, record db.Record) (sql.Result, error)
	// InsertBatch 批量插入记录。
	InsertBatch(ctx context.Context, table string, records []db.Record) (sql.Result, error)
	// Update 按条件更新并返回受影响行数。
	Update(ctx context.Context, table string, data db.Record, where []CondGroup) (int64, error)
	// Delete 按条件删除并返回受影响行数。
	Delete(ctx context.Context, table string, where []CondGroup) (int64, error)
	// Config 返回底层连接配置。
	Config() db.DBConfig
}

// DB 链式查询的入口。
type DB struct {
	exec IExecutor
}

// NewDB 基于执行器创建查询入口。
func NewDB(exec IExecutor) *DB {
	return &DB{exec: exec}
}

// Query 派生一个空白查询。
func (d *DB) Query(ctx context.Context) *Query {
	return NewQuery(ctx, d.exec)
}

// Table 派生一个已指定表名的查询。
func (d *DB) Table(ctx context.Context, table string) *Query {
	return NewQuery(ctx, d.exec).From(table)
}

// Config 返回底层连接配置。
func (d *DB) Config() db.DBConfig {
	return d.exec.Config()
}
