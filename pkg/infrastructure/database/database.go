package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vsinha/blend/pkg/infrastructure/config"
	gormrepository "github.com/vsinha/blend/pkg/infrastructure/repositories/gorm"
)

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open connects to PostgreSQL. Unique-key violations surface as
// gorm.ErrDuplicatedKey so the store can map them to domain errors.
func Open(cfg config.DBConfig) (*DB, error) {
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN), gcfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	db := &DB{Gorm: gdb, SQL: sqldb}
	if err := SetTimezone(db, cfg.Timezone); err != nil {
		_ = Close(db)
		return nil, err
	}
	return db, nil
}

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	if err := db.Gorm.AutoMigrate(gormrepository.Models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func Ping(ctx context.Context, db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.PingContext(ctx)
}

func SetTimezone(db *DB, tz string) error {
	if tz == "" {
		return nil
	}
	if strings.ContainsAny(tz, "';") {
		return fmt.Errorf("invalid timezone %q", tz)
	}
	_, err := db.SQL.Exec("SET TIME ZONE '" + tz + "'")
	return err
}
