package model

import "time"

// User represents a registered account in the authenticated deployment.
// The password is stored only as a bcrypt hash and never serialized.
type User struct {
	ID           uint64    `json:"id"`         // users.id
	Username     string    `json:"username"`   // users.username
	Email        string    `json:"email"`      // users.email
	PasswordHash string    `json:"-"`          // users.password_hash
	CreatedAt    time.Time `json:"created_at"` // users.created_at
}
