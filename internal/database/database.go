package database

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"invite-exchange/internal/config"
	"invite-exchange/internal/models"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// ActiveCoreCodeIndex keeps at most one claimable code per core code. Rows
// drop out of the index once remaining_uses reaches 0, so an exhausted
// code can be published again.
const ActiveCoreCodeIndex = "uq_codes_active_core_code"

// Connect opens the database named by cfg.URL
func Connect(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dialect, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	}

	var db *gorm.DB
	switch dialect {
	case DialectPostgres:
		db, err = gorm.Open(postgres.Open(cfg.URL), gormCfg)
	default:
		db, err = gorm.Open(sqlite.Open(SQLiteDSN(cfg.SQLitePath())), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if dialect == DialectSQLite {
		if err := ConfigureSQLite(db); err != nil {
			return nil, err
		}
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection established",
		zap.String("dialect", dialect),
		zap.Bool("row_locking", SupportsRowLocking(db)),
	)
	return db, nil
}

// SQLiteBusyTimeoutMillis is how long a connection waits on a locked database
const SQLiteBusyTimeoutMillis = 5000

// SQLiteDSN adds the connection parameters for gorm.io/driver/sqlite to a
// file path. They are applied by the driver to every new connection, so a
// replaced pool connection keeps WAL, the busy timeout and foreign keys.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on", path, sep, SQLiteBusyTimeoutMillis)
}

// ConfigureSQLite pins the pool to one connection and checks that the
// connection parameters took effect. SQLite has no row locks, so claims on
// the same code are serialised by the single writer connection and guarded
// by the conditional decrement.
func ConfigureSQLite(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	var timeout int
	if err := db.Raw("PRAGMA busy_timeout").Scan(&timeout).Error; err != nil {
		return fmt.Errorf("failed to read busy_timeout: %w", err)
	}
	if timeout != SQLiteBusyTimeoutMillis {
		return fmt.Errorf("sqlite busy_timeout is %d, expected %d: connection parameters missing from DSN", timeout, SQLiteBusyTimeoutMillis)
	}
	return nil
}

// SupportsRowLocking reports whether SELECT ... FOR UPDATE is honoured
func SupportsRowLocking(db *gorm.DB) bool {
	return db.Dialector.Name() == DialectPostgres
}

// AutoMigrate creates the codes and claims tables and their indexes
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Code{}, &models.Claim{}); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON codes (core_code) WHERE remaining_uses > 0",
		ActiveCoreCodeIndex,
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", ActiveCoreCodeIndex, err)
	}

	return nil
}
