package models

import (
	"time"
)

// Media is an indexed media document. Rows are upserted by ID on re-ingest.
type Media struct {
	ID            string `gorm:"primaryKey;type:text" json:"id"`
	AccessHash    string `gorm:"type:text" json:"access_hash"`
	FileReference []byte `json:"-"`
	MimeType      string `gorm:"type:text" json:"mime_type"`
	Caption       string `gorm:"type:text" json:"caption"`
	Keywords      string `gorm:"type:text" json:"keywords"` // normalized, space separated
	FileName      string `gorm:"type:text" json:"file_name"`
}

func (Media) TableName() string {
	return "files"
}

// DisplayName is the label shown for the media in result lists.
func (m Media) DisplayName() string {
	switch {
	case m.FileName != "":
		return m.FileName
	case m.Caption != "":
		return m.Caption
	default:
		return "Unknown File"
	}
}

// Token is an exchange token. A media row has at most one token.
type Token struct {
	Token  string `gorm:"primaryKey;type:text" json:"token"`
	FileID string `gorm:"type:text;not null;uniqueIndex:idx_tokens_file_id" json:"file_id"`
	Media  *Media `gorm:"foreignKey:FileID;references:ID" json:"-"`
}

func (Token) TableName() string {
	return "tokens"
}

// Subscriber holds a premium tier expiry for a user.
type Subscriber struct {
	UserID     int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ExpiryDate time.Time `gorm:"not null" json:"expiry_date"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Subscriber) TableName() string {
	return "premium_users"
}

// User tracks everyone who has talked to the bot, regardless of tier.
type User struct {
	UserID     int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Username   string    `gorm:"type:text" json:"username"`
	FirstName  string    `gorm:"type:text" json:"first_name"`
	LastName   string    `gorm:"type:text" json:"last_name"`
	JoinedDate time.Time `gorm:"autoCreateTime" json:"joined_date"`
	LastActive time.Time `gorm:"index" json:"last_active"`
}

func (User) TableName() string {
	return "users"
}

// All lists every model, in migration order.
func All() []interface{} {
	return []interface{}{&Media{}, &Token{}, &Subscriber{}, &User{}}
}
