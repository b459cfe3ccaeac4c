package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDesigner     Role = "designer"
	RolePrintManager Role = "print_manager"
)

const MinPasswordLength = 6

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDesigner, RolePrintManager:
		return true
	}
	return false
}

// User is a staff account. Deleting a user only deactivates it, so tasks and
// activity entries that mention it stay resolvable.
type User struct {
	ID           string    `yaml:"id" json:"id"`
	Username     string    `yaml:"username" json:"username"`
	Email        string    `yaml:"email,omitempty" json:"email"`
	FirstName    string    `yaml:"first_name,omitempty" json:"firstName"`
	LastName     string    `yaml:"last_name,omitempty" json:"lastName"`
	Role         Role      `yaml:"role" json:"role"`
	PhoneNumber  string    `yaml:"phone_number,omitempty" json:"phoneNumber"`
	IsActive     bool      `yaml:"is_active" json:"isActive"`
	PasswordHash string    `yaml:"password_hash,omitempty" json:"-"`
	DateJoined   time.Time `yaml:"date_joined" json:"dateJoined"`
	UpdatedAt    time.Time `yaml:"updated_at" json:"updatedAt"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
