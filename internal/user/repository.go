package user

import "context"

// Repository stores accounts. Passwords are passed in plain text and hashed
// by the implementation; an empty password on Update keeps the current one.
type Repository interface {
	// Create returns AlreadyExists when the username is taken.
	Create(ctx context.Context, u *User, password string) error
	Get(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	// List returns every account, newest first.
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User, password string) error
}
