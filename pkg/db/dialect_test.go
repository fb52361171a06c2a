package db

import (
	"testing"

	"github.com/smallbiznis/storefront/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectSelectsDriver(t *testing.T) {
	for kind, name := range map[string]string{"postgres": "postgres", "PostgreSQL": "postgres", "mysql": "mysql", "sqlite": "sqlite"} {
		d, err := Dialect(config.Config{DBType: kind, DBName: "shop"})
		require.NoError(t, err, kind)
		assert.Equal(t, name, d.Name(), kind)
	}

	_, err := Dialect(config.Config{DBType: "oracle"})
	assert.ErrorContains(t, err, `"oracle"`)
}

func TestDSNs(t *testing.T) {
	cfg := config.Config{DBHost: "db", DBPort: "5432", DBUser: "shop", DBPassword: "pw", DBName: "storefront", DBSSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=shop password=pw dbname=storefront sslmode=disable TimeZone=UTC", postgresDSN(cfg))

	cfg.DBPort = "3306"
	assert.Equal(t, "shop:pw@tcp(db:3306)/storefront?charset=utf8mb4&parseTime=true&loc=UTC", mysqlDSN(cfg))

	assert.Equal(t, "storefront.db?_pragma=busy_timeout(5000)", sqliteDSN(config.Config{DBName: "postgres"}))
	assert.Equal(t, "/tmp/shop.db?_pragma=busy_timeout(5000)", sqliteDSN(config.Config{DBName: "/tmp/shop.db"}))
}
