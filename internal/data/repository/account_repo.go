package repository

import (
	"context"
	"fmt"

	"eventhub/internal/data/entity"
	"eventhub/pkg/database"

	"go.uber.org/zap"
)

type AccountRepository interface {
	// Ensure inserts the link unless (provider, provider_account_id) exists.
	Ensure(ctx context.Context, account *entity.Account) error
}

type accountRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAccountRepository(db database.PgxIface, log *zap.Logger) AccountRepository {
	return &accountRepository{
		db:  db,
		log: log.With(zap.String("repository", "account")),
	}
}

func (r *accountRepository) Ensure(ctx context.Context, account *entity.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, provider, provider_account_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, provider_account_id) DO NOTHING
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		account.ID,
		account.UserID,
		account.Provider,
		account.ProviderAccountID,
		account.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to ensure account link",
			zap.Error(err),
			zap.String("user_id", account.UserID.String()),
			zap.String("provider", account.Provider),
		)
		return fmt.Errorf("ensure account for %s: %w", account.UserID.String(), err)
	}

	return nil
}
