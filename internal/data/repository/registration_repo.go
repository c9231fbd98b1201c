package repository

import (
	"context"
	"errors"
	"fmt"

	"eventhub/internal/data/entity"
	"eventhub/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// RegistrationRepository is a read-only view over event registrations.
type RegistrationRepository interface {
	// FindLatestByEmail returns the most recent live registration for email,
	// matched case-insensitively, with the event name filled in. Registrations
	// for deleted events are ignored.
	FindLatestByEmail(ctx context.Context, email string) (*entity.Registration, error)
}

type registrationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewRegistrationRepository(db database.PgxIface, log *zap.Logger) RegistrationRepository {
	return &registrationRepository{
		db:  db,
		log: log.With(zap.String("repository", "registration")),
	}
}

func (r *registrationRepository) FindLatestByEmail(ctx context.Context, email string) (*entity.Registration, error) {
	query := `
		SELECT r.id, r.event_id, e.name, r.email, r.first_name, r.last_name,
		       r.badge_code, r.created_at, r.updated_at, r.deleted_at
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE lower(r.email) = $1
		  AND r.deleted_at IS NULL
		  AND e.deleted_at IS NULL
		ORDER BY r.created_at DESC
		LIMIT 1
	`

	var reg entity.Registration
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, email).Scan(
		&reg.ID,
		&reg.EventID,
		&reg.EventName,
		&reg.Email,
		&reg.FirstName,
		&reg.LastName,
		&reg.BadgeCode,
		&reg.CreatedAt,
		&reg.UpdatedAt,
		&reg.DeletedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find registration by email",
			zap.Error(err),
			zap.String("email", email),
		)
		return nil, fmt.Errorf("find registration by email %s: %w", email, err)
	}

	return &reg, nil
}
