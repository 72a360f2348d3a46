package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type Repository interface {
	Create(ctx context.Context, u *User) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	EmailTakenByOther(ctx context.Context, email string, id uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, upd UserUpdate) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const userColumns = `id, username, email, password_hash, full_name, role, status, avatar_url, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row, u *User) error {
	return row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Role,
		&u.Status,
		&u.AvatarURL,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

// isUniqueViolation reports whether err is the storage-level rejection of the
// username/email uniqueness constraints. The application pre-checks first for
// a friendly message, but the constraint is the authoritative guarantee when
// two requests race between check and write.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *postgresRepository) Create(ctx context.Context, userInput *User) (uuid.UUID, error) {
	userID := userInput.ID
	if userID == uuid.Nil {
		genID, genErr := uuid.NewV4()
		if genErr != nil {
			log.Error().Err(genErr).Msg("repository: failed to generate user ID")
			return uuid.Nil, fmt.Errorf("repository: failed to generate user ID: %w", genErr)
		}
		userID = genID
	}
	userInput.ID = userID

	now := time.Now().UTC()
	userInput.CreatedAt = now
	userInput.UpdatedAt = now

	query := `
		INSERT INTO users (id, username, email, password_hash, full_name, role, status, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		userInput.ID,
		userInput.Username,
		userInput.Email,
		userInput.PasswordHash,
		userInput.FullName,
		userInput.Role,
		userInput.Status,
		userInput.AvatarURL,
		userInput.CreatedAt,
		userInput.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrConflict
		}
		return uuid.Nil, fmt.Errorf("repository: failed to insert user: %w", err)
	}

	return userID, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	var u User
	err := scanUser(r.db.QueryRow(ctx, query, id), &u)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("repository: failed to select user by id %s: %w", id, err)
	}

	return &u, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("repository: failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating users: %w", err)
	}

	return users, nil
}

func (r *postgresRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE username = $1 OR email = $2
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("repository: failed to check username/email existence: %w", err)
	}

	return exists, nil
}

func (r *postgresRepository) EmailTakenByOther(ctx context.Context, email string, id uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE email = $1 AND id <> $2
		)
	`

	var taken bool
	if err := r.db.QueryRow(ctx, query, email, id).Scan(&taken); err != nil {
		return false, fmt.Errorf("repository: failed to check email ownership: %w", err)
	}

	return taken, nil
}

// Update applies the allow-listed fields of upd and returns the number of
// rows affected. Column names are hard-coded per field; only values are bound,
// so no caller-controlled key ever reaches the statement text.
//
// The WHERE clause additionally requires at least one set column to actually
// differ (IS DISTINCT FROM), because Postgres otherwise counts matched rows:
// a value-for-value repeat would report 1 affected row and bump updated_at.
// With the guard, such a repeat affects zero rows, leaves the row byte-equal,
// and lets the service disambiguate "no such user" from "nothing changed".
// A password change always differs since the hash is freshly salted.
func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, upd UserUpdate) (int64, error) {
	setClauses := make([]string, 0, 7)
	guardClauses := make([]string, 0, 6)
	args := make([]interface{}, 0, 8)

	addSet := func(column string, value interface{}) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
		guardClauses = append(guardClauses, fmt.Sprintf("%s IS DISTINCT FROM $%d", column, len(args)))
	}

	if upd.Email != nil {
		addSet("email", *upd.Email)
	}
	if upd.FullName != nil {
		addSet("full_name", *upd.FullName)
	}
	if upd.Role != nil {
		addSet("role", *upd.Role)
	}
	if upd.Status != nil {
		addSet("status", *upd.Status)
	}
	if upd.PasswordHash != nil {
		addSet("password_hash", *upd.PasswordHash)
	}
	if upd.AvatarURL != nil {
		addSet("avatar_url", *upd.AvatarURL)
	}

	if len(setClauses) == 0 {
		return 0, ErrNoFields
	}

	// updated_at moves with every applied write but must not defeat the
	// distinctness guard, so it gets no guard clause of its own.
	args = append(args, time.Now().UTC())
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", len(args)))

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d AND (%s)",
		strings.Join(setClauses, ", "), len(args), strings.Join(guardClauses, " OR "))

	cmdTag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}

		log.Error().Err(err).Stringer("user_id", id).Msg("repository: failed to update user")
		return 0, fmt.Errorf("repository: failed to update user %s: %w", id, err)
	}

	return cmdTag.RowsAffected(), nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM users
		WHERE id = $1
	`

	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", id).Msg("repository: failed to delete user")
		return fmt.Errorf("repository: failed to delete user %s: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
