package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/data/entity"
	"eventhub/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type OTPRepository interface {
	Create(ctx context.Context, otp *entity.OneTimeCode) error
	// Consume marks the newest live row matching (email, code, purpose) as
	// used and returns it. It returns nil when no row was updated, including
	// when a concurrent caller consumed the same row first.
	Consume(ctx context.Context, email, code string, purpose entity.OTPPurpose, now time.Time) (*entity.OneTimeCode, error)
	InvalidateActive(ctx context.Context, email string, purpose entity.OTPPurpose, now time.Time) (int64, error)
	DeleteStale(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}

type otpRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewOTPRepository(db database.PgxIface, log *zap.Logger) OTPRepository {
	return &otpRepository{
		db:  db,
		log: log.With(zap.String("repository", "otp")),
	}
}

func (r *otpRepository) Create(ctx context.Context, otp *entity.OneTimeCode) error {
	query := `
		INSERT INTO one_time_codes (id, email, code, purpose, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		otp.ID,
		otp.Email,
		otp.Code,
		otp.Purpose,
		otp.ExpiresAt,
		otp.Used,
		otp.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create one-time code",
			zap.Error(err),
			zap.String("email", otp.Email),
			zap.String("purpose", string(otp.Purpose)),
		)
		return fmt.Errorf("create one-time code for %s: %w", otp.Email, err)
	}

	return nil
}

func (r *otpRepository) Consume(ctx context.Context, email, code string, purpose entity.OTPPurpose, now time.Time) (*entity.OneTimeCode, error) {
	// The outer "used = false" is re-evaluated after the row lock is taken,
	// so a racing second UPDATE affects zero rows.
	query := `
		UPDATE one_time_codes
		SET used = true
		WHERE id = (
			SELECT id FROM one_time_codes
			WHERE email = $1
			  AND code = $2
			  AND purpose = $3
			  AND used = false
			  AND expires_at > $4
			ORDER BY created_at DESC
			LIMIT 1
		)
		  AND used = false
		RETURNING id, email, code, purpose, expires_at, used, created_at
	`

	var otp entity.OneTimeCode
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, email, code, purpose, now).Scan(
		&otp.ID,
		&otp.Email,
		&otp.Code,
		&otp.Purpose,
		&otp.ExpiresAt,
		&otp.Used,
		&otp.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to consume one-time code",
			zap.Error(err),
			zap.String("email", email),
			zap.String("purpose", string(purpose)),
		)
		return nil, fmt.Errorf("consume one-time code for %s: %w", email, err)
	}

	return &otp, nil
}

func (r *otpRepository) InvalidateActive(ctx context.Context, email string, purpose entity.OTPPurpose, now time.Time) (int64, error) {
	query := `
		UPDATE one_time_codes
		SET used = true
		WHERE email = $1
		  AND purpose = $2
		  AND used = false
		  AND expires_at > $3
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, email, purpose, now)
	if err != nil {
		r.log.Error("Failed to invalidate active codes",
			zap.Error(err),
			zap.String("email", email),
		)
		return 0, fmt.Errorf("invalidate codes for %s: %w", email, err)
	}

	return result.RowsAffected(), nil
}

func (r *otpRepository) DeleteStale(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	query := `
		DELETE FROM one_time_codes
		WHERE expires_at <= $1
		   OR (used = true AND created_at < $2)
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, now, now.Add(-retention))
	if err != nil {
		r.log.Error("Failed to delete stale codes", zap.Error(err))
		return 0, fmt.Errorf("delete stale codes: %w", err)
	}

	return result.RowsAffected(), nil
}
