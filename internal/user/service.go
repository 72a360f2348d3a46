package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	CreateUser(ctx context.Context, u *User, password string) (uuid.UUID, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	// UpdateUser reports whether the write changed the row. A false result
	// with a nil error means the request was valid but a no-op.
	UpdateUser(ctx context.Context, id uuid.UUID, upd UserUpdate) (bool, error)
	DeleteUser(ctx context.Context, id, callerID uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateUser(ctx context.Context, u *User, password string) (uuid.UUID, error) {
	if password == "" {
		return uuid.Nil, errors.New("password cannot be empty")
	}

	// Pre-check for a friendly Conflict before hashing; the UNIQUE
	// constraints in the users table remain the authoritative guard and the
	// repository maps their violation to the same ErrConflict.
	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, u.Username, u.Email)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to check user uniqueness")
		return uuid.Nil, fmt.Errorf("failed to check user uniqueness: %w", err)
	}
	if exists {
		return uuid.Nil, ErrConflict
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to generate password hash")
		return uuid.Nil, fmt.Errorf("internal error hashing password: %w", err)
	}
	u.PasswordHash = string(hashBytes)

	if u.Status == "" {
		u.Status = StatusActive
	}

	createdID, err := s.repo.Create(ctx, u)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return uuid.Nil, ErrConflict
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return uuid.Nil, fmt.Errorf("failed to save user: %w", err)
	}

	return createdID, nil
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to get user by id")
		return nil, fmt.Errorf("failed to get user by id '%s': %w", id, err)
	}

	return u, nil
}

func (s *service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list users")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

func (s *service) UpdateUser(ctx context.Context, id uuid.UUID, upd UserUpdate) (bool, error) {
	if upd.Empty() {
		return false, ErrNoFields
	}

	if upd.Email != nil {
		taken, err := s.repo.EmailTakenByOther(ctx, *upd.Email, id)
		if err != nil {
			log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to check email uniqueness")
			return false, fmt.Errorf("failed to check email uniqueness: %w", err)
		}
		if taken {
			return false, ErrConflict
		}
	}

	if upd.Password != nil {
		hashBytes, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error().Err(err).Msg("service: failed to generate password hash")
			return false, fmt.Errorf("internal error hashing password: %w", err)
		}
		hash := string(hashBytes)
		upd.PasswordHash = &hash
		upd.Password = nil
	}

	rowsAffected, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNoFields) {
			return false, err
		}

		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to update user")
		return false, fmt.Errorf("failed to update user '%s': %w", id, err)
	}

	if rowsAffected == 0 {
		// Either the row is gone or the write was a value-for-value no-op.
		// Re-read to tell the two apart.
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return false, ErrNotFound
			}

			log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to re-read user after empty update")
			return false, fmt.Errorf("failed to re-read user '%s': %w", id, err)
		}

		return false, nil
	}

	return true, nil
}

func (s *service) DeleteUser(ctx context.Context, id, callerID uuid.UUID) error {
	if id == callerID {
		return ErrSelfDelete
	}

	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}

		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to delete user")
		return fmt.Errorf("failed to delete user '%s': %w", id, err)
	}

	return nil
}
