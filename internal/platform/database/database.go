package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bugtalk/internal/config"
	"bugtalk/internal/platform/mysql"
	"bugtalk/internal/platform/postgres"
)

// Open connects to the configured relational store.
func Open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	gormCfg := GormConfig(cfg.App.Env)

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Database.Driver {
	case "", "mysql":
		db, err = mysql.New(cfg.MySQLDSN(), gormCfg)
	case "postgres":
		db, err = postgres.New(cfg.Database.Postgres.DSN, gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := Configure(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

func GormConfig(env string) *gorm.Config {
	level := logger.Warn
	if env == "dev" {
		level = logger.Info
	}
	return &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  level,
				IgnoreRecordNotFoundError: true,
			},
		),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Configure applies the shared pool settings and checks connectivity.
func Configure(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db failed: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping database failed: %w", err)
	}
	return nil
}
