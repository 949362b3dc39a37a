package commands

import (
	"fmt"

	"github.com/geocoder89/blogapi/internal/db"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage the bootstrap admin account",
}

var adminEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the admin from ADMIN_* env vars if missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		ctx := cmd.Context()

		if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
			return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
		}

		stores, err := openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer stores.Close()

		created, err := db.EnsureAdminUser(ctx, stores.Users, cfg)
		if err != nil {
			return err
		}

		log := logger(cfg)
		if created {
			log.Info("admin user created", "email", cfg.AdminEmail)
		} else {
			log.Info("admin user already exists", "email", cfg.AdminEmail)
		}
		return nil
	},
}

func init() {
	adminCmd.AddCommand(adminEnsureCmd)
}
