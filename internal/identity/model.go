package identity

import "time"

// User represents a registered account holder.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Role         string
	CreatedAt    time.Time
}

// Credentials carry a signup or login attempt.
type Credentials struct {
	Email    string
	Password string
}
