// Package token mints and resolves exchange tokens. A file has at most one
// token; concurrent mints converge on whichever insert won.
package token

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"

	"mediabot/internal/apperr"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Resolve for an unknown token.
var ErrNotFound = apperr.New(apperr.KindNotFound, "token not found")

// Store persists tokens. Insert must report a lost race on the file id
// uniqueness constraint as an apperr.KindConflict error, and lookups of
// missing rows as apperr.KindNotFound.
type Store interface {
	FindByFileID(ctx context.Context, fileID string) (string, error)
	Insert(ctx context.Context, token, fileID string) error
	FindByToken(ctx context.Context, token string) (string, error)
}

type Broker struct {
	store  Store
	logger *slog.Logger
}

func NewBroker(store Store, logger *slog.Logger) *Broker {
	return &Broker{
		store:  store,
		logger: logger.With(slog.String("component", "token_broker")),
	}
}

// Mint returns the token for fileID, creating it on first use.
func (b *Broker) Mint(ctx context.Context, fileID string) (string, error) {
	existing, err := b.store.FindByFileID(ctx, fileID)
	if err == nil {
		return existing, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return "", err
	}

	tok := Generate()
	err = b.store.Insert(ctx, tok, fileID)
	switch {
	case err == nil:
		b.logger.Debug("Token minted", slog.String("file_id", fileID))
		return tok, nil
	case apperr.Is(err, apperr.KindConflict):
		// Another request inserted first; its token is the one to hand out.
		winner, rerr := b.store.FindByFileID(ctx, fileID)
		if rerr != nil {
			return "", rerr
		}
		b.logger.Debug("Token mint lost race", slog.String("file_id", fileID))
		return winner, nil
	default:
		return "", err
	}
}

// Resolve returns the file id referenced by tok.
func (b *Broker) Resolve(ctx context.Context, tok string) (string, error) {
	if tok == "" {
		return "", ErrNotFound
	}
	fileID, err := b.store.FindByToken(ctx, tok)
	if apperr.Is(err, apperr.KindNotFound) {
		return "", ErrNotFound
	}
	return fileID, err
}

// Generate returns a fresh URL-safe token: the base64url encoding of a
// random UUID string.
func Generate() string {
	return base64.URLEncoding.EncodeToString([]byte(uuid.NewString()))
}

// IsNotFound reports whether err means the token does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
