package cmd

import (
	"fmt"
	"os"

	"eventhub/internal/data/repository"
	"eventhub/internal/notify"
	"eventhub/internal/usecase"
	"eventhub/pkg/database"
	"eventhub/pkg/token"
	"eventhub/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagEnvFile string

	config *utils.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "eventhub",
	Short: "Passwordless sign-in service for event participants",
	Long: `eventhub issues one-time login codes to event registrants, verifies them
and hands out signed session cookies.

  eventhub serve           Run the HTTP API
  eventhub cleanup         Delete expired and stale one-time codes
  eventhub create-admin    Create or update an administrative account`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = utils.LoadConfig(flagEnvFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger, err = utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Path to an optional .env file")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// connect opens the pool and assembles the services on top of it. The
// caller owns the returned DB.
func connect() (database.PgxIface, *repository.Repository, *usecase.Service, error) {
	db, err := database.InitDB(config.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info("Database connected successfully")

	signer, err := token.NewSigner(config.Session.Secret, config.Session.Expiry(), config.App.Name)
	if err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("session signer: %w", err)
	}

	repo := repository.NewRepository(db, logger)
	service := usecase.NewService(usecase.Deps{
		Repo:   repo,
		Config: config,
		Sender: notify.NewSender(config.Email, logger),
		Signer: signer,
		Log:    logger,
	})

	return db, repo, service, nil
}
