package repository

import (
	"context"
	"time"

	"mediabot/internal/models"

	"gorm.io/gorm/clause"
)

// SubscriberRepository stores premium expiries.
type SubscriberRepository struct {
	base
}

// Expiry returns the stored expiry for userID.
func (r *SubscriberRepository) Expiry(ctx context.Context, userID int64) (time.Time, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var s models.Subscriber
	if err := db.Where("user_id = ?", userID).First(&s).Error; err != nil {
		return time.Time{}, classify("get subscriber", err)
	}
	return s.ExpiryDate, nil
}

// SetExpiry writes expiry for userID, replacing any previous value.
func (r *SubscriberRepository) SetExpiry(ctx context.Context, userID int64, expiry time.Time) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"expiry_date"}),
	}).Create(&models.Subscriber{UserID: userID, ExpiryDate: expiry}).Error
	return classify("set subscriber expiry", err)
}
