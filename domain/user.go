package domain

import "time"

// User is a platform account as seen by the messaging subsystem: just
// enough to authenticate a live connection. Onboarding, profiles and
// verification live elsewhere.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}
