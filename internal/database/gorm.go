package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mediabot/internal/config"
	"mediabot/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured store, applies pool limits and runs the
// migrations. Constraint violations are translated to gorm.ErrDuplicatedKey.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.PostgresDSN())
	case "sqlite":
		dialector = sqlite.Open(SQLiteDSN(cfg.DBPath))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger(slog.Default()),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		// One writer at a time; the busy timeout covers concurrent requests.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns / 2)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	slog.Info("Connected to database", slog.String("driver", cfg.DBDriver))

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// slogWriter feeds gorm's logger into slog. gorm only writes warnings
// (slow queries) and errors at the configured level.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// newLogger logs slow statements and failures; a missing row is an expected
// outcome for lookups and is not logged.
func newLogger(l *slog.Logger) logger.Interface {
	return logger.New(slogWriter{logger: l.With(slog.String("component", "gorm"))}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// OpenSQLite opens a SQLite file with the same settings Open uses. The
// migration tool and tests use it directly.
func OpenSQLite(path string) (*gorm.DB, error) {
	return Open(&config.Config{DBDriver: "sqlite", DBPath: path})
}

// SQLiteDSN enables WAL, foreign keys and a busy timeout on the file.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
}

// Migrate creates the tables and the full-text index.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migration: %w", err)
	}

	if db.Dialector.Name() == "postgres" {
		err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_files_keywords
			ON files USING gin(to_tsvector('english', keywords))`).Error
		if err != nil {
			return fmt.Errorf("create keyword index: %w", err)
		}
	}

	slog.Info("Database migration completed")
	return nil
}
