package user

import (
	"time"

	"trainerbook/internal/auth"
)

// User is a client or the trainer. Accounts are created out of band; this
// service only reads them.
type User struct {
	ID                   int       `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	Email                *string   `db:"email" json:"email,omitempty"`
	Phone                *string   `db:"phone" json:"phone,omitempty"`
	Role                 auth.Role `db:"role" json:"role"`
	NotificationsEnabled bool      `db:"notifications_enabled" json:"notifications_enabled"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

// Contactable reports whether the user can be sent an email.
func (u *User) Contactable() bool {
	return u.NotificationsEnabled && u.Email != nil && *u.Email != ""
}
