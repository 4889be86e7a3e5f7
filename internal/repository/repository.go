// Package repository is the gorm-backed store for media, exchange tokens,
// subscribers and users. It works against PostgreSQL in production and
// SQLite for local runs and tests.
package repository

import (
	"context"
	"errors"
	"time"

	"mediabot/internal/apperr"

	"gorm.io/gorm"
)

// Repositories bundles every repository over one connection.
type Repositories struct {
	Media       *MediaRepository
	Tokens      *TokenRepository
	Subscribers *SubscriberRepository
	Users       *UserRepository
}

// New builds all repositories. timeout bounds every individual statement;
// zero disables the client-side bound.
func New(db *gorm.DB, timeout time.Duration) *Repositories {
	b := base{db: db, timeout: timeout}
	return &Repositories{
		Media:       &MediaRepository{base: b},
		Tokens:      &TokenRepository{base: b},
		Subscribers: &SubscriberRepository{base: b},
		Users:       &UserRepository{base: b},
	}
}

type base struct {
	db      *gorm.DB
	timeout time.Duration
}

// conn returns a session bound to a context carrying the statement timeout.
func (b base) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if b.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, b.timeout)
		return b.db.WithContext(ctx), cancel
	}
	return b.db.WithContext(ctx), func() {}
}

func (b base) postgres() bool {
	return b.db.Dialector.Name() == "postgres"
}

// classify maps driver errors onto apperr kinds: missing rows are not_found,
// constraint violations are conflict, everything else is unavailable.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.Wrap(apperr.KindNotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(apperr.KindConflict, op, err)
	default:
		return apperr.Wrap(apperr.KindUnavailable, op, err)
	}
}
