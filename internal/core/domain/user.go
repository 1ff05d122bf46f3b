package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an identity that may own a wallet.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsSystem     bool      `json:"-"` // Owns no provisioned wallet, never receives a bonus
	CreatedAt    time.Time `json:"created_at"`
}

// Identity returns the authenticated identity value for u.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}

// Identity is the caller on whose behalf a ledger operation runs.
type Identity struct {
	UserID   uuid.UUID
	Username string
}
