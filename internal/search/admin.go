package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"mediabot/internal/apperr"
	"mediabot/internal/keyword"
	"mediabot/internal/models"
	"mediabot/internal/tier"
)

// Document is an uploaded file offered for indexing.
type Document struct {
	ID            string
	AccessHash    string
	FileReference []byte
	MimeType      string
	Caption       string
	FileName      string
}

// Profile is what the transport knows about a user.
type Profile struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Stats summarises user activity.
type Stats struct {
	TotalUsers  int       `json:"total_users"`
	ActiveUsers int       `json:"active_users_24h"`
	GeneratedAt time.Time `json:"generated_at"`
}

// TierStatus reports the subscription state of userID.
func (o *Orchestrator) TierStatus(ctx context.Context, userID int64) (tier.Status, error) {
	st, err := o.tiers.Status(ctx, userID)
	if err != nil {
		o.logger.Error("Tier status failed", slog.Int64("user_id", userID), slog.String("error", err.Error()))
		return tier.Status{}, err
	}
	return st, nil
}

// GrantTier sets userID's premium expiry to now+days and returns the new
// status. A nil error is the success signal.
func (o *Orchestrator) GrantTier(ctx context.Context, userID int64, days int) (tier.Status, error) {
	if _, err := o.tiers.GrantOrRenew(ctx, userID, days); err != nil {
		o.logger.Error("Grant failed",
			slog.Int64("user_id", userID),
			slog.Int("days", days),
			slog.String("error", err.Error()),
		)
		return tier.Status{}, err
	}
	return o.tiers.Status(ctx, userID)
}

// Ingest indexes doc. Only admins may add media.
func (o *Orchestrator) Ingest(ctx context.Context, caller Caller, doc Document) error {
	if !caller.Admin {
		return apperr.New(apperr.KindForbidden, "only admins may add media")
	}
	if strings.TrimSpace(doc.ID) == "" {
		return apperr.New(apperr.KindMalformed, "document has no id")
	}

	m := &models.Media{
		ID:            doc.ID,
		AccessHash:    doc.AccessHash,
		FileReference: doc.FileReference,
		MimeType:      doc.MimeType,
		Caption:       doc.Caption,
		Keywords:      keyword.ForIngest(doc.Caption, doc.FileName),
		FileName:      doc.FileName,
	}
	if err := o.media.Upsert(ctx, m); err != nil {
		o.logger.Error("Ingest failed", slog.String("file_id", doc.ID), slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("Media indexed",
		slog.String("file_id", m.ID),
		slog.String("file_name", m.FileName),
		slog.String("keywords", m.Keywords),
	)
	return nil
}

// Register records p as a known user.
func (o *Orchestrator) Register(ctx context.Context, p Profile) {
	err := o.users.Upsert(ctx, models.User{
		UserID:     p.ID,
		Username:   p.Username,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		LastActive: o.clock.Now().UTC(),
	})
	if err != nil {
		o.logger.Warn("Register user failed", slog.Int64("user_id", p.ID), slog.String("error", err.Error()))
	}
}

// Touch marks userID as active now.
func (o *Orchestrator) Touch(ctx context.Context, userID int64) {
	if err := o.users.Touch(ctx, userID, o.clock.Now().UTC()); err != nil {
		o.logger.Warn("Update activity failed", slog.Int64("user_id", userID), slog.String("error", err.Error()))
	}
}

// Stats counts all users and those active in the last 24 hours.
func (o *Orchestrator) Stats(ctx context.Context) (Stats, error) {
	now := o.clock.Now().UTC()
	total, err := o.users.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	active, err := o.users.CountActiveSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalUsers: total, ActiveUsers: active, GeneratedAt: now}, nil
}
