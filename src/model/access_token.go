package model

import "time"

// AccessToken is a personal bearer token issued at register/login time.
// Only the SHA-256 digest of the secret part is stored; the plain text token
// handed to the client is "<id>|<secret>" and is never persisted.
type AccessToken struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	Name       string     `gorm:"size:100;not null" json:"name"`
	TokenHash  string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (AccessToken) TableName() string {
	return "access_tokens"
}
