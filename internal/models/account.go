package models

import "time"

type Account struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phoneNumber"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PasswordResetToken is consumed at most once and only before ExpiresAt.
type PasswordResetToken struct {
	ID        int64
	AccountID int64
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}
