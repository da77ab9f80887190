package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a ForgeDB account.
type User struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	Email    string   `gorm:"uniqueIndex;not null" json:"email"`
	Name     string   `json:"name"`
	Password string   `gorm:"not null" json:"-"`
	Avatar   string   `json:"avatar"`
	Badges   []string `gorm:"type:text;serializer:json" json:"badges"`
	IsAdmin  bool     `gorm:"not null;default:false" json:"isAdmin"`

	IsVerified              bool       `gorm:"not null;default:false" json:"isVerified"`
	VerificationCode        string     `gorm:"size:6" json:"-"`
	VerificationCodeExpires *time.Time `json:"-"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// DisplayName falls back to the local part of the email.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	for i := 0; i < len(u.Email); i++ {
		if u.Email[i] == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}
