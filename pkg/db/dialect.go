package db

import (
	"fmt"
	"net"
	"strings"

	"github.com/smallbiznis/storefront/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultSQLiteFile = "storefront.db"

// Dialect picks the gorm driver for DATABASE_TYPE. Every connection runs in
// UTC so ledger and order timestamps compare across drivers.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch kind := strings.ToLower(strings.TrimSpace(cfg.DBType)); kind {
	case "postgres", "postgresql":
		return postgres.Open(postgresDSN(cfg)), nil
	case "mysql":
		return mysql.Open(mysqlDSN(cfg)), nil
	case "sqlite":
		return sqlite.Open(sqliteDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("db: unsupported database type %q", kind)
	}
}

func postgresDSN(cfg config.Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
}

func mysqlDSN(cfg config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		cfg.DBUser, cfg.DBPassword, net.JoinHostPort(cfg.DBHost, cfg.DBPort), cfg.DBName)
}

// sqliteDSN treats DATABASE_NAME as a file path. The postgres default name
// would otherwise create a file called "postgres".
func sqliteDSN(cfg config.Config) string {
	path := strings.TrimSpace(cfg.DBName)
	if path == "" || path == "postgres" {
		path = defaultSQLiteFile
	}
	return path + "?_pragma=busy_timeout(5000)"
}
