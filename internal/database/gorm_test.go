package database

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"mediabot/internal/models"

	"gorm.io/gorm"
)

func TestMissingRowIsNotLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "log.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	buf.Reset()

	var tok models.Token
	err = db.Where("file_id = ?", "f01").First(&tok).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("First = %v, want ErrRecordNotFound", err)
	}
	if strings.Contains(buf.String(), "record not found") {
		t.Errorf("missing row was logged: %s", buf.String())
	}

	if err := db.Exec("SELECT * FROM no_such_table").Error; err == nil {
		t.Fatal("expected an error for a missing table")
	}
	out := buf.String()
	if !strings.Contains(out, "no_such_table") || !strings.Contains(out, "component=gorm") {
		t.Errorf("statement failure not logged through slog: %q", out)
	}
}
