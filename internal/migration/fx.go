package migration

import (
	"github.com/smallbiznis/storefront/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(applyOnStart),
)

// applyOnStart runs before any service touches the database. Only postgres
// carries embedded migrations; mysql and sqlite schemas are provisioned
// out of band.
func applyOnStart(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	log = log.Named("migration")
	if cfg.DBType != "postgres" {
		log.Warn("skipping embedded migrations", zap.String("db_type", cfg.DBType))
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	version, err := RunMigrations(sqlDB)
	if err != nil {
		return err
	}
	log.Info("schema up to date", zap.Uint("version", version))
	return nil
}
