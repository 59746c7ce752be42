package domain

import "time"

// User is a credential record keyed by email. It is immutable once stored.
type User struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
