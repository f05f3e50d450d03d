// Package db 提供通用的数据库抽象接口
//
// 设计目标：
// 1. 隔离具体驱动（mysql、postgres、sqlite）
// 2. 提供统一的数据库操作接口
// 3. 支持事务操作
// 4. 便于单元测试（Mock）
package db

import (
	"context"
	"database/sql"
	"strings"

	"dbchain/errors"
)

// IDatabase 通用数据库接口
type IDatabase interface {
	// 查询操作
	Query(ctx context.Context, query string, args ...any) (IRows, error)
	QueryRow(ctx context.Context, query string, args ...any) IRow

	// 执行操作
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	// 事务操作
	Begin(ctx context.Context) (ITransaction, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (ITransaction, error)

	// 连接管理
	Ping(ctx context.Context) error
	Close() error

	// 获取原始连接（用于特殊场景）
	Raw() any
}

// IDialectNameProvider 可选接口：提供底层数据库方言名称
//
// 实现方应返回诸如 "mysql"、"sqlite"、"postgres" 等 driver/dialect 名，
// 供上层推断方言能力（标识符引用、占位符改写等）。
type IDialectNameProvider interface {
	// GetDialectName 返回底层数据库方言名称
	GetDialectName() string
}

// ITransaction 事务接口
type ITransaction interface {
	IDatabase

	// 事务控制
	Commit() error
	Rollback() error
}

// IRows 查询结果集接口
type IRows interface {
	// 遍历结果
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error

	// 获取列信息
	Columns() ([]string, error)
	ColumnTypes() ([]*sql.ColumnType, error)
}

// IRow 单行结果接口
type IRow interface {
	Scan(dest ...any) error
	Err() error
}

// Record 一行数据：列名到值的映射。
//
// 查询结果、插入数据、更新数据均使用该类型在各层之间传递。
type Record map[string]any

// Clone 返回记录的浅拷贝。
//
// 需要在不影响调用方数据的情况下修改记录时使用
// （例如批量更新前摘除主键字段）。
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	cloned := make(Record, len(r))
	for k, v := range r {
		cloned[k] = v
	}
	return cloned
}

// 支持的驱动名
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DBConfig 数据库配置
type DBConfig struct {
	Driver   string // mysql, postgres, sqlite
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// 连接池配置
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒

	// 其他选项
	Charset   string
	ParseTime bool
	Location  string
}

// Validate 校验配置的最低要求。
//
// 规则：
//   - Database 不能为空（sqlite 下即 DSN/文件路径）；
//   - Driver 为空按 sqlite 处理；
//   - Driver 非空时必须是受支持的驱动名（大小写不敏感）。
func (c DBConfig) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return errors.NewError(errors.ErrCodeConfig, "database name is empty")
	}
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "", DriverSQLite, "sqlite3", DriverMySQL, DriverPostgres, "postgresql":
		return nil
	default:
		return errors.NewError(errors.ErrCodeConfig, "unsupported driver: "+c.Driver)
	}
}

// NewDatabaseFunc 工厂方法（由具体实现提供）
type NewDatabaseFunc func(config DBConfig) (IDatabase, error)
