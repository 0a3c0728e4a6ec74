// Package sqlite is the embedded storage adapter used for local runs and
// tests. It implements the same ports as the postgres package.
package sqlite

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/NordCoder/Tubely/migrations"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

type Config struct {
	Path         string        `mapstructure:"path"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

type DB struct {
	gorm         *gorm.DB
	queryTimeout time.Duration
}

// Open opens the database file and applies the embedded migrations. SQLite
// allows one writer, so the pool is pinned to a single connection.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dsn := cfg.Path
	if dsn == "" {
		dsn = "file::memory:"
	}
	g, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        dsn + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
	}, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := g.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := &DB{gorm: g, queryTimeout: cfg.QueryTimeout}
	if err := db.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	fsys, err := fs.Sub(migrations.SQLite, "sqlite")
	if err != nil {
		return err
	}
	prov, err := goose.NewProvider(goose.DialectSQLite3, sqlDB, fsys, goose.WithDisableGlobalRegistry(true))
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := prov.Up(ctx); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()
	return mapErr("ping", sqlDB.PingContext(ctx))
}

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, db.queryTimeout)
}

type txKey struct{}

// conn returns the transaction carried by ctx, or the root handle.
func (db *DB) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.gorm.WithContext(ctx)
}
