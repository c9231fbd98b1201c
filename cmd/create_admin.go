package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"eventhub/internal/dto/request"

	"github.com/spf13/cobra"
)

var (
	flagAdminEmail    string
	flagAdminName     string
	flagAdminRole     string
	flagAdminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create or update an administrative account",
	Long: `Creates an account that can sign in with a password, or resets the role and
password of an existing one. When --password is omitted the password is
read from the first line of stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := flagAdminPassword
		if password == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}

		db, _, service, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()

		user, err := service.Auth.CreateAdmin(cmd.Context(), &request.CreateAdminRequest{
			Email:    flagAdminEmail,
			Name:     flagAdminName,
			Password: password,
			Role:     flagAdminRole,
		})
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", user.ID, user.Email, user.Role)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&flagAdminEmail, "email", "", "Account email")
	createAdminCmd.Flags().StringVar(&flagAdminName, "name", "", "Display name")
	createAdminCmd.Flags().StringVar(&flagAdminRole, "role", "admin", "Role: admin, organizer or staff")
	createAdminCmd.Flags().StringVar(&flagAdminPassword, "password", "", "Password (read from stdin when empty)")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(createAdminCmd)
}
