package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique). Used for login.
	Email string

	// DisplayName is the name shown to other group members.
	DisplayName string

	// PasswordHash is the bcrypt hash of the user's password.
	// Never exposed through the API.
	PasswordHash string

	// Currency is the user's preferred ISO 4217 currency code (e.g., "USD").
	Currency string

	// Language is the user's preferred language code (e.g., "en").
	Language string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last modification.
	UpdatedAt int64

	// DeletedAt is the Unix timestamp of soft deletion, or 0 if active.
	DeletedAt int64
}

// NewUser creates a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Currency:     "USD",
		Language:     "en",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// State returns the user's lifecycle state.
func (u *User) State() LifecycleState { return stateOf(u.DeletedAt) }
