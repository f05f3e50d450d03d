package basic

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"      // postgres 驱动
	_ "modernc.org/sqlite"     // sqlite 驱动（纯 Go）

	core "dbchain/data/db"
)

// buildDSN 按驱动拼装 DSN，返回规范化驱动名与连接串。
//
// 约定：
//   - sqlite：Database 字段即 DSN（支持 :memory: 与文件路径）；
//   - mysql：通过 mysql.Config 组装，地址形如 tcp(host:port)；
//   - postgres：key=value 形式，未显式配置时 sslmode=disable。
func buildDSN(config core.DBConfig) (driver string, dsn string, err error) {
	switch strings.ToLower(strings.TrimSpace(config.Driver)) {
	case "", core.DriverSQLite, "sqlite3":
		return core.DriverSQLite, config.Database, nil
	case core.DriverMySQL:
		return mysqlDSN(config)
	case core.DriverPostgres, "postgresql":
		return postgresDSN(config)
	default:
		// Validate 已拦截未知驱动，这里兜底
		return "", "", fmt.Errorf("basic: unsupported driver %q", config.Driver)
	}
}

func mysqlDSN(config core.DBConfig) (string, string, error) {
	host := config.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := config.Port
	if port == 0 {
		port = 3306
	}

	mc := mysql.NewConfig()
	mc.User = config.Username
	mc.Passwd = config.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", host, port)
	mc.DBName = config.Database
	mc.ParseTime = config.ParseTime
	if config.Charset != "" {
		mc.Params = map[string]string{"charset": config.Charset}
	}
	if config.Location != "" {
		loc, err := time.LoadLocation(config.Location)
		if err != nil {
			return "", "", err
		}
		mc.Loc = loc
	}

	return core.DriverMySQL, mc.FormatDSN(), nil
}

func postgresDSN(config core.DBConfig) (string, string, error) {
	host := config.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := config.Port
	if port == 0 {
		port = 5432
	}

	parts := []string{
		fmt.Sprintf("host=%s", host),
		fmt.Sprintf("port=%d", port),
	}
	if config.Username != "" {
		parts = append(parts, fmt.Sprintf("user=%s", config.Username))
	}
	if config.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", config.Password))
	}
	parts = append(parts,
		fmt.Sprintf("dbname=%s", config.Database),
		"sslmode=disable",
	)

	return core.DriverPostgres, strings.Join(parts, " "), nil
}
