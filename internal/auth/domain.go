package auth

import "time"

// User is a principal held in the credential store.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Active       bool      `json:"active"`
	RoleIDs      []int64   `json:"role_ids"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GetID returns the user id.
func (u *User) GetID() int64 { return u.ID }

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool { return u.Active }

// GetRoleIDs returns the ids of the roles granted to the user.
func (u *User) GetRoleIDs() []int64 { return u.RoleIDs }

// Profile is the public view returned by login, register and validate.
type Profile struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	RoleIDs   []int64 `json:"role_ids"`
}

// ProfileOf projects a user onto its public profile.
func ProfileOf(u *User) Profile {
	roles := u.RoleIDs
	if roles == nil {
		roles = []int64{}
	}
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		RoleIDs:   roles,
	}
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Username  string  `json:"username" validate:"required,max=64"`
	Password  string  `json:"password" validate:"required,max=72"`
	Email     string  `json:"email" validate:"required,email"`
	FirstName string  `json:"first_name" validate:"max=100"`
	LastName  string  `json:"last_name" validate:"max=100"`
	RoleIDs   []int64 `json:"role_ids"`
}

// LoginInput carries login credentials.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned after a successful register, login or validate.
type AuthResult struct {
	Token   string  `json:"token"`
	Profile Profile `json:"user"`
}
