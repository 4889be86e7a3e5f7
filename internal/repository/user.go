package repository

import (
	"context"
	"time"

	"mediabot/internal/models"

	"gorm.io/gorm/clause"
)

// UserRepository tracks everyone who has interacted with the bot.
type UserRepository struct {
	base
}

// Upsert records u, refreshing its names and last-active time.
func (r *UserRepository) Upsert(ctx context.Context, u models.User) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "last_active"}),
	}).Create(&u).Error
	return classify("add user", err)
}

// Touch updates last_active for an existing user.
func (r *UserRepository) Touch(ctx context.Context, userID int64, at time.Time) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	err := db.Model(&models.User{}).Where("user_id = ?", userID).Update("last_active", at).Error
	return classify("update user activity", err)
}

// Count returns the number of known users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var n int64
	if err := db.Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, classify("count users", err)
	}
	return int(n), nil
}

// CountActiveSince returns the number of users active at or after since.
func (r *UserRepository) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var n int64
	if err := db.Model(&models.User{}).Where("last_active >= ?", since).Count(&n).Error; err != nil {
		return 0, classify("count active users", err)
	}
	return int(n), nil
}

// IDs lists every user id, newest first.
func (r *UserRepository) IDs(ctx context.Context) ([]int64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var ids []int64
	if err := db.Model(&models.User{}).Order("joined_date DESC").Pluck("user_id", &ids).Error; err != nil {
		return nil, classify("list users", err)
	}
	return ids, nil
}
