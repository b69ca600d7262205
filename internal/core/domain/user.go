package domain

import (
	"strings"
	"time"
)

// User models an account in the system. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsBanned     bool      `json:"isBanned"`
	Address      string    `json:"address,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserProfile is the read model returned to callers. It has no password
// field, so a profile can never leak a credential.
type UserProfile struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsBanned  bool      `json:"isBanned"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile projects the user onto its public read model.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsBanned:  u.IsBanned,
		Address:   u.Address,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Normalize trims the name and canonicalizes the email, and fills the
// role default for new records.
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleUser
	}
}

// Validate checks the fields required for a persisted user.
func (u *User) Validate() error {
	if u.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if u.Email == "" {
		return &ValidationError{Field: "email", Reason: "is required"}
	}
	if u.PasswordHash == "" {
		return &ValidationError{Field: "password", Reason: "is required"}
	}
	if !u.Role.Valid() {
		return &ValidationError{Field: "role", Reason: "must be one of admin, moderator, user"}
	}
	return nil
}

// UserPatch carries a partial update. Nil fields are left untouched.
// Email is deliberately absent: it is immutable after creation.
type UserPatch struct {
	Name     *string
	Address  *string
	Role     *Role
	IsBanned *bool
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Address == nil && p.Role == nil && p.IsBanned == nil
}

// Normalize trims the string fields of the patch in place.
func (p *UserPatch) Normalize() {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
	if p.Address != nil {
		addr := strings.TrimSpace(*p.Address)
		p.Address = &addr
	}
}

// Validate runs the creation validators against the fields being changed.
func (p UserPatch) Validate() error {
	if p.Empty() {
		return &ValidationError{Field: "patch", Reason: "has no fields to update"}
	}
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if p.Role != nil && !p.Role.Valid() {
		return &ValidationError{Field: "role", Reason: "must be one of admin, moderator, user"}
	}
	return nil
}

// AccountStatus is the slice of a user record the authentication gate
// re-reads on every request. The role is not part of it: the gate trusts the
// role signed into the token.
type AccountStatus struct {
	Email    string `json:"email"`
	IsBanned bool   `json:"isBanned"`
}

// Identity is the authenticated caller resolved from a verified token.
type Identity struct {
	Email string
	Role  Role
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
