// Package tier decides whether a user is premium or standard and manages
// premium expiries.
package tier

import (
	"context"
	"log/slog"
	"time"

	"mediabot/internal/apperr"
	"mediabot/internal/clock"
)

// Tier is the access level of a user.
type Tier int

const (
	Standard Tier = iota
	Premium
)

func (t Tier) String() string {
	if t == Premium {
		return "premium"
	}
	return "standard"
}

// PageSize is the number of results shown per page for the tier.
func (t Tier) PageSize() int {
	if t == Premium {
		return 20
	}
	return 10
}

// DirectDelivery reports whether media is pushed to the user instead of
// being handed out as an exchange token link.
func (t Tier) DirectDelivery() bool {
	return t == Premium
}

// Status is a user's subscription state at a point in time.
type Status struct {
	IsActive bool      `json:"is_active"`
	Expiry   time.Time `json:"expiry"`
	DaysLeft int       `json:"days_left"`
}

// Store persists expiries. Expiry reports unknown users as
// apperr.KindNotFound.
type Store interface {
	Expiry(ctx context.Context, userID int64) (time.Time, error)
	SetExpiry(ctx context.Context, userID int64, expiry time.Time) error
}

type Resolver struct {
	store  Store
	clock  clock.Clock
	logger *slog.Logger
}

func NewResolver(store Store, clk clock.Clock, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		clock:  clk,
		logger: logger.With(slog.String("component", "tier_resolver")),
	}
}

// Classify returns Premium while the stored expiry lies in the future.
func (r *Resolver) Classify(ctx context.Context, userID int64) (Tier, error) {
	st, err := r.Status(ctx, userID)
	if err != nil {
		return Standard, err
	}
	if st.IsActive {
		return Premium, nil
	}
	return Standard, nil
}

// Status reports the subscription state of userID. Users without a row are
// inactive, not an error.
func (r *Resolver) Status(ctx context.Context, userID int64) (Status, error) {
	expiry, err := r.store.Expiry(ctx, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}
	return statusAt(expiry, r.clock.Now()), nil
}

// GrantOrRenew sets the expiry of userID to now+days. Any earlier expiry is
// replaced, not extended.
func (r *Resolver) GrantOrRenew(ctx context.Context, userID int64, days int) (time.Time, error) {
	if days <= 0 {
		return time.Time{}, apperr.New(apperr.KindMalformed, "days must be positive")
	}
	expiry := r.clock.Now().UTC().AddDate(0, 0, days)
	if err := r.store.SetExpiry(ctx, userID, expiry); err != nil {
		return time.Time{}, err
	}
	r.logger.Info("Premium granted",
		slog.Int64("user_id", userID),
		slog.Int("days", days),
		slog.Time("expiry", expiry),
	)
	return expiry, nil
}

func statusAt(expiry, now time.Time) Status {
	st := Status{Expiry: expiry, IsActive: expiry.After(now)}
	if st.IsActive {
		st.DaysLeft = int(expiry.Sub(now) / (24 * time.Hour))
	}
	return st
}
