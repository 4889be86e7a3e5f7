// Command migrate_data copies a SQLite database into the configured Postgres
// database. Rows already present in Postgres are left untouched, so the tool
// can be re-run after a partial copy.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"mediabot/internal/config"
	"mediabot/internal/database"
	"mediabot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)

	source := flag.String("from", cfg.DBPath, "SQLite file to copy from")
	batch := flag.Int("batch", 500, "Rows per insert batch")
	flag.Parse()

	src, err := database.OpenSQLite(*source)
	if err != nil {
		logger.Error("Failed to open SQLite source", slog.String("path", *source), slog.String("error", err.Error()))
		os.Exit(1)
	}
	cfg.DBDriver = "postgres"
	dst, err := database.Open(cfg)
	if err != nil {
		logger.Error("Failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Starting data migration", slog.String("from", *source), slog.Int("batch", *batch))

	// files before tokens: tokens reference files.
	steps := []func() (string, int64, error){
		func() (string, int64, error) { return copyTable[models.Media](src, dst, *batch) },
		func() (string, int64, error) { return copyTable[models.Token](src, dst, *batch) },
		func() (string, int64, error) { return copyTable[models.Subscriber](src, dst, *batch) },
		func() (string, int64, error) { return copyTable[models.User](src, dst, *batch) },
	}
	failed := false
	for _, step := range steps {
		table, n, err := step()
		if err != nil {
			logger.Error("Table migration failed", slog.String("table", table), slog.Int64("rows", n), slog.String("error", err.Error()))
			failed = true
			continue
		}
		logger.Info("Table migrated", slog.String("table", table), slog.Int64("rows", n))
	}
	if failed {
		os.Exit(1)
	}
	logger.Info("Data migration completed")
}

// copyTable streams every row of T from src into dst in batches, skipping
// rows whose primary key already exists. It returns the table name and the
// number of rows read.
func copyTable[T any](src, dst *gorm.DB, batch int) (string, int64, error) {
	stmt := &gorm.Statement{DB: src}
	if err := stmt.Parse(new(T)); err != nil {
		return fmt.Sprintf("%T", *new(T)), 0, err
	}
	table := stmt.Schema.Table

	var rows []T
	var total int64
	res := src.Model(new(T)).FindInBatches(&rows, batch, func(tx *gorm.DB, _ int) error {
		total += tx.RowsAffected
		return dst.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&rows).Error
	})
	return table, total, res.Error
}
