package pkg

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/smartscore-service/internal/config"
	"github.com/SAP-F-2025/smartscore-service/internal/models"
)

// InitDatabase opens the configured database, sizes the pool and migrates the schema
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogLevel <= slog.LevelDebug {
		level = logger.Info
	}

	db, err := OpenDatabase(cfg.DatabaseDriver, cfg.DatabaseURL, level)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenDatabase opens a gorm handle for driver ("postgres" or "sqlite").
// Constraint failures are translated to gorm.ErrDuplicatedKey and
// gorm.ErrForeignKeyViolated where the dialect supports it.
func OpenDatabase(driver, dsn string, level logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		dialector = sqlite.Open(SQLiteDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// SQLiteDSN enables foreign keys, a busy timeout and immediate write
// transactions unless the DSN already sets its own pragmas.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}

	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Set("_txlock", "immediate")

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode()
}

// Migrate creates or updates the tables for every entity
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
