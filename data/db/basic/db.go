// Package basic 提供基于 database/sql 的 IDatabase 实现。
//
// 驱动注册由本包负责：mysql、postgres、sqlite 三种驱动随包导入，
// 调用方无需再做空导入。
package basic

import (
	"context"
	"database/sql"
	"time"

	core "dbchain/data/db"
	"dbchain/data/db/dialect"
)

// DB 基于 database/sql 的最小实现，满足 core.IDatabase 抽象
type DB struct {
	db      *sql.DB
	driver  string
	dialect dialect.Dialect
}

// New 根据 core.DBConfig 创建基础数据库实例。
//
// 流程：
//  1. 校验配置（空库名/未知驱动返回 CONFIG_ERROR）；
//  2. 按驱动拼装 DSN（见 dsn.go）；
//  3. 打开连接池并应用池配置；
//  4. 3 秒内 Ping 不通则关闭连接并返回错误。
func New(config core.DBConfig) (core.IDatabase, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	driver, dsn, err := buildDSN(config)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// 连接池配置（可选）
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(config.ConnMaxLifetime) * time.Second)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(time.Duration(config.ConnMaxIdleTime) * time.Second)
	}

	// 基础可用性检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, driver: driver, dialect: dialect.New(driver)}, nil
}

func (d *DB) Query(ctx context.Context, query string, args ...any) (core.IRows, error) {
	q := d.dialect.Rebind(query)
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (d *DB) QueryRow(ctx context.Context, query string, args ...any) core.IRow {
	q := d.dialect.Rebind(query)
	return &Row{row: d.db.QueryRowContext(ctx, q, args...)}
}

func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q := d.dialect.Rebind(query)
	return d.db.ExecContext(ctx, q, args...)
}

func (d *DB) Begin(ctx context.Context) (core.ITransaction, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{db: d.db, tx: tx, dialect: d.dialect}, nil
}

func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (core.ITransaction, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{db: d.db, tx: tx, dialect: d.dialect}, nil
}

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
func (d *DB) Close() error                   { return d.db.Close() }
func (d *DB) Raw() any                       { return d.db }

// GetDialectName 实现 core.IDialectNameProvider 接口，返回底层 driver 名
func (d *DB) GetDialectName() string {
	return d.driver
}
