package domain

import "time"

type User struct {
	ID        string
	Email     string
	Username  string
	Admin     bool
	CreatedAt time.Time
}

// Identity is what the auth provider hands back after sign-up or sign-in.
type Identity struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
