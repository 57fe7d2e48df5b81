package models

import (
	"errors"
	"strings"
	"time"
)

// Roles. The owner is the marketplace deployer; the treasury is the
// system account that holds listing fees until the owner withdraws them.
const (
	RoleUser     = "user"
	RoleOwner    = "owner"
	RoleTreasury = "treasury"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) Validate() error {
	if len(strings.TrimSpace(u.Username)) < 3 {
		return errors.New("username too short")
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("invalid email")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
