package migration

import (
	"github.com/fixkit/fixkit/internal/config"
	"github.com/fixkit/fixkit/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.DBType != "postgres" {
			// The embedded migrations target postgres. Other dialects are
			// for tests, which migrate their own schema.
			log.Warn("skipping embedded migrations", zap.String("db_type", cfg.DBType))
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		if err := seed.EnsureDefaultPlans(conn); err != nil {
			return err
		}
		return seed.EnsureMainTenant(conn)
	}),
)
