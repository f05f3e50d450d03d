package basic

import (
	"context"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "dbchain/data/db"
	apperrors "dbchain/errors"
)

// setupTestDB 创建内存 SQLite 并初始化测试表
func setupTestDB(t *testing.T) core.IDatabase {
	t.Helper()

	db, err := New(core.DBConfig{
		Driver:   "sqlite",
		Database: ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(context.Background(), `
		CREATE TABLE kv (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		)`)
	require.NoError(t, err)
	return db
}

// ========== 配置校验 ==========

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(core.DBConfig{Driver: "sqlite"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConfig(err), "空库名应返回配置错误")

	_, err = New(core.DBConfig{Driver: "oracle", Database: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConfig(err), "未知驱动应返回配置错误")
}

// ========== DSN 拼装 ==========

func TestBuildDSN_MySQL(t *testing.T) {
	driver, dsn, err := buildDSN(core.DBConfig{
		Driver:    "mysql",
		Host:      "db.internal",
		Port:      3307,
		Database:  "orders",
		Username:  "app",
		Password:  "secret",
		Charset:   "utf8mb4",
		ParseTime: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "mysql", driver)

	// 通过驱动自身的解析器验证 DSN 合法且字段无损
	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "app", parsed.User)
	assert.Equal(t, "secret", parsed.Passwd)
	assert.Equal(t, "db.internal:3307", parsed.Addr)
	assert.Equal(t, "orders", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, "utf8mb4", parsed.Params["charset"])
}

func TestBuildDSN_MySQLDefaults(t *testing.T) {
	_, dsn, err := buildDSN(core.DBConfig{Driver: "mysql", Database: "app"})
	require.NoError(t, err)

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3306", parsed.Addr)
}

func TestBuildDSN_Postgres(t *testing.T) {
	driver, dsn, err := buildDSN(core.DBConfig{
		Driver:   "postgres",
		Host:     "pg.internal",
		Port:     5433,
		Database: "orders",
		Username: "app",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres", driver)
	assert.Equal(t, "host=pg.internal port=5433 user=app password=secret dbname=orders sslmode=disable", dsn)
}

func TestBuildDSN_PostgresOmitsEmptyCredentials(t *testing.T) {
	_, dsn, err := buildDSN(core.DBConfig{Driver: "postgresql", Database: "orders"})
	require.NoError(t, err)
	assert.Equal(t, "host=127.0.0.1 port=5432 dbname=orders sslmode=disable", dsn)
}

func TestBuildDSN_SQLite(t *testing.T) {
	driver, dsn, err := buildDSN(core.DBConfig{Driver: "sqlite3", Database: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", driver)
	assert.Equal(t, ":memory:", dsn)

	// 空驱动按 sqlite 处理
	driver, _, err = buildDSN(core.DBConfig{Database: "data.db"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", driver)
}

// ========== 基本读写 ==========

func TestDB_ExecAndQuery(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	res, err := db.Exec(ctx, "INSERT INTO kv (k, v) VALUES (?, ?)", "alpha", "1")
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	var v string
	err = db.QueryRow(ctx, "SELECT v FROM kv WHERE k = ?", "alpha").Scan(&v)
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	rows, err := db.Query(ctx, "SELECT k, v FROM kv")
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "v"}, cols)

	count := 0
	for rows.Next() {
		var k, v string
		require.NoError(t, rows.Scan(&k, &v))
		count++
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, 1, count)
}

func TestDB_DialectName(t *testing.T) {
	db := setupTestDB(t)

	provider, ok := db.(core.IDialectNameProvider)
	require.True(t, ok)
	assert.Equal(t, "sqlite", provider.GetDialectName())
}

// ========== 事务 ==========

func TestTx_CommitAndRollback(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// 提交后数据可见
	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO kv (k, v) VALUES (?, ?)", "committed", "1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	var v string
	require.NoError(t, db.QueryRow(ctx, "SELECT v FROM kv WHERE k = ?", "committed").Scan(&v))

	// 回滚后数据不可见
	tx, err = db.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO kv (k, v) VALUES (?, ?)", "discarded", "1")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	err = db.QueryRow(ctx, "SELECT v FROM kv WHERE k = ?", "discarded").Scan(&v)
	assert.Error(t, err, "回滚的数据不应可见")
}

func TestTx_NestedBeginRejected(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Begin(ctx)
	assert.Error(t, err)
}
