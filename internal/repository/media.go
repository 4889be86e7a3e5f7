package repository

import (
	"context"
	"strings"

	"mediabot/internal/index"
	"mediabot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MediaRepository reads and ingests rows of the files table.
type MediaRepository struct {
	base
}

// Search returns one page of matching rows ordered by id.
func (r *MediaRepository) Search(ctx context.Context, q index.Query, limit, offset int) ([]index.Summary, error) {
	if q.Empty() {
		return []index.Summary{}, nil
	}
	db, cancel := r.conn(ctx)
	defer cancel()

	var rows []index.Summary
	err := r.match(db.Model(&models.Media{}), q).
		Select("id, caption, file_name").
		Order("id").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, classify("search files", err)
	}
	if rows == nil {
		rows = []index.Summary{}
	}
	return rows, nil
}

// Count returns the number of rows matching q, independent of paging.
func (r *MediaRepository) Count(ctx context.Context, q index.Query) (int, error) {
	if q.Empty() {
		return 0, nil
	}
	db, cancel := r.conn(ctx)
	defer cancel()

	var n int64
	if err := r.match(db.Model(&models.Media{}), q).Count(&n).Error; err != nil {
		return 0, classify("count files", err)
	}
	return int(n), nil
}

// GetByID loads the full row for direct delivery.
func (r *MediaRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var m models.Media
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, classify("get file", err)
	}
	return &m, nil
}

// Upsert inserts m or overwrites every column of the existing row.
func (r *MediaRepository) Upsert(ctx context.Context, m *models.Media) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_hash", "file_reference", "mime_type", "caption", "keywords", "file_name"}),
	}).Create(m).Error
	return classify("store file metadata", err)
}

func (r *MediaRepository) match(db *gorm.DB, q index.Query) *gorm.DB {
	if r.postgres() {
		return db.Where("to_tsvector('english', keywords) @@ to_tsquery('english', ?)", q.Expression())
	}

	patterns := q.LikePatterns()
	conds := make([]string, len(patterns))
	args := make([]interface{}, len(patterns))
	for i, p := range patterns {
		conds[i] = `(' ' || keywords) LIKE ? ESCAPE '\'`
		args[i] = p
	}
	return db.Where("("+strings.Join(conds, " OR ")+")", args...)
}
