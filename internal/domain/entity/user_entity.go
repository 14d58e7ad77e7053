package entity

import "time"

// User is the aggregate root for the user domain.
// Password holds a bcrypt hash and must never be serialized outward.
type User struct {
	ID        string
	Email     string
	Username  string
	Password  string
	Bio       string
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
