// Package models defines server-side records persisted by the user store.
package models

import (
	"slices"
	"time"
)

// User is an identity record. Phone, PasswordHash and RefreshTokenHash are
// empty when unset (NULL in the database).
type User struct {
	ID               string
	Username         string
	Email            string
	Phone            string
	PasswordHash     string
	Roles            []string
	RefreshTokenHash string
	EmailVerified    bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Public returns a copy with secrets stripped, safe to hand to transports.
func (u *User) Public() User {
	c := *u
	c.PasswordHash = ""
	c.RefreshTokenHash = ""
	c.Roles = slices.Clone(u.Roles)
	return c
}
