package repository

import (
	"eventhub/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	DB           database.PgxIface
	Tx           database.Transactor
	User         UserRepository
	Session      SessionRepository
	Account      AccountRepository
	OTP          OTPRepository
	Registration RegistrationRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		DB:           db,
		Tx:           database.NewTransactor(db),
		User:         NewUserRepository(db, log),
		Session:      NewSessionRepository(db, log),
		Account:      NewAccountRepository(db, log),
		OTP:          NewOTPRepository(db, log),
		Registration: NewRegistrationRepository(db, log),
	}
}
