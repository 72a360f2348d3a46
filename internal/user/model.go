package user

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	StatusActive = "active"

	RoleAdmin = "admin"
)

// User is the full persisted record. PasswordHash is never serialized.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FullName     string     `json:"full_name" db:"full_name"`
	Role         string     `json:"role" db:"role"`
	Status       string     `json:"status" db:"status"`
	AvatarURL    string     `json:"avatar_url" db:"avatar_url"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// UserUpdate carries the fixed allow-list of mutable fields for a partial
// update. A nil field means "leave as is". Username is deliberately absent:
// it is immutable after creation.
//
// Password is the caller-supplied plaintext; the service layer hashes it and
// fills PasswordHash before the update reaches the repository. The repository
// only ever reads PasswordHash.
type UserUpdate struct {
	Email        *string
	FullName     *string
	Role         *string
	Status       *string
	Password     *string
	AvatarURL    *string
	PasswordHash *string
}

// Empty reports whether the update carries no applicable field.
func (u UserUpdate) Empty() bool {
	return u.Email == nil &&
		u.FullName == nil &&
		u.Role == nil &&
		u.Status == nil &&
		u.Password == nil &&
		u.PasswordHash == nil &&
		u.AvatarURL == nil
}
