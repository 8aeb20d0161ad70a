package users

import "time"

// User is the administrative view of an account.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	IsActive  bool      `json:"active"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusInput toggles the active flag.
type StatusInput struct {
	Active *bool `json:"active" validate:"required"`
}

// PasswordInput replaces an account password.
type PasswordInput struct {
	Password string `json:"password" validate:"required"`
}

// ProfileInput updates the personal details of an account. Empty fields are
// left unchanged.
type ProfileInput struct {
	Email     string `json:"email" validate:"omitempty,email,max=255"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}
