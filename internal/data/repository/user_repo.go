package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/data/entity"
	"eventhub/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// UpsertVerified creates the identity for user.Email or, when one exists,
	// refreshes its names and verification/login timestamps. The role of an
	// existing identity is never changed.
	UpsertVerified(ctx context.Context, user *entity.User) (*entity.User, error)
	// UpsertCredential creates or updates an identity with a name, a role
	// and a password hash.
	UpsertCredential(ctx context.Context, user *entity.User) (*entity.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type userRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewUserRepository(db database.PgxIface, log *zap.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log.With(zap.String("repository", "user")),
	}
}

const userColumns = `id, email, name, first_name, last_name, role,
		       email_verified, last_login, password, created_at, updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	var user entity.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.EmailVerified,
		&user.LastLogin,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (ur *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(database.Conn(ctx, ur.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by ID",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return nil, fmt.Errorf("find user by ID %s: %w", id.String(), err)
	}

	return user, nil
}

func (ur *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(database.Conn(ctx, ur.db).QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by email",
			zap.Error(err),
			zap.String("email", email),
		)
		return nil, fmt.Errorf("find user by email %s: %w", email, err)
	}

	return user, nil
}

func (ur *userRepository) UpsertVerified(ctx context.Context, user *entity.User) (*entity.User, error) {
	query := `
		INSERT INTO users (id, email, name, first_name, last_name, role,
		                   email_verified, last_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    email_verified = EXCLUDED.email_verified,
		    last_login = EXCLUDED.last_login,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns

	saved, err := scanUser(database.Conn(ctx, ur.db).QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.FirstName,
		user.LastName,
		user.Role,
		user.EmailVerified,
		user.LastLogin,
		user.CreatedAt,
		user.UpdatedAt,
	))
	if err != nil {
		ur.log.Error("Failed to upsert verified user",
			zap.Error(err),
			zap.String("email", user.Email),
		)
		return nil, fmt.Errorf("upsert user %s: %w", user.Email, err)
	}

	return saved, nil
}

func (ur *userRepository) UpsertCredential(ctx context.Context, user *entity.User) (*entity.User, error) {
	query := `
		INSERT INTO users (id, email, name, first_name, last_name, role,
		                   password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name,
		    role = EXCLUDED.role,
		    password = EXCLUDED.password,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns

	saved, err := scanUser(database.Conn(ctx, ur.db).QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.FirstName,
		user.LastName,
		user.Role,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	))
	if err != nil {
		ur.log.Error("Failed to upsert user credential",
			zap.Error(err),
			zap.String("email", user.Email),
		)
		return nil, fmt.Errorf("upsert credential for %s: %w", user.Email, err)
	}

	return saved, nil
}

func (ur *userRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`

	result, err := database.Conn(ctx, ur.db).Exec(ctx, query, id, at)
	if err != nil {
		ur.log.Error("Failed to update last login",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return fmt.Errorf("touch last login %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", id.String())
	}

	return nil
}
