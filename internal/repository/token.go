package repository

import (
	"context"

	"mediabot/internal/models"
)

// TokenRepository stores exchange tokens. The unique index on file_id is what
// keeps one token per file under concurrent minting.
type TokenRepository struct {
	base
}

// FindByFileID returns the token already minted for fileID.
func (r *TokenRepository) FindByFileID(ctx context.Context, fileID string) (string, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var t models.Token
	if err := db.Where("file_id = ?", fileID).First(&t).Error; err != nil {
		return "", classify("find token by file", err)
	}
	return t.Token, nil
}

// Insert stores a new token. A lost race surfaces as a conflict error.
func (r *TokenRepository) Insert(ctx context.Context, token, fileID string) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	return classify("insert token", db.Omit("Media").Create(&models.Token{Token: token, FileID: fileID}).Error)
}

// FindByToken returns the file id a token refers to.
func (r *TokenRepository) FindByToken(ctx context.Context, token string) (string, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var t models.Token
	if err := db.Where("token = ?", token).First(&t).Error; err != nil {
		return "", classify("find token", err)
	}
	return t.FileID, nil
}
