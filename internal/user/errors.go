package user

import "errors"

var (
	// ErrNotFound means no user matches the requested identifier.
	ErrNotFound = errors.New("user not found")

	// ErrConflict means the username or email is already taken. The error
	// intentionally does not say which of the two collided.
	ErrConflict = errors.New("username or email already exists")

	// ErrSelfDelete means an administrator tried to delete their own account.
	ErrSelfDelete = errors.New("cannot delete own administrative account")

	// ErrNoFields means a partial update contained no updatable field after
	// filtering against the allow-list.
	ErrNoFields = errors.New("no valid fields to update")
)
