package commands

import (
	"fmt"

	"github.com/geocoder89/blogapi/internal/db"
	"github.com/geocoder89/blogapi/internal/security"
	"github.com/spf13/cobra"
)

var (
	// Seed flags
	seedDir string
	yes     bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load or delete development data",
}

var seedImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import users, categories and posts from JSON files",
	Long: `Import users.json, categories.json and posts.json from --dir.
Missing files are skipped. Passwords in users.json are plain text and are
hashed on import.

Examples:
  blogctl seed import --dir ./dev-data`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		ctx := cmd.Context()

		stores, err := openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer stores.Close()

		if _, err := stores.Migrate(ctx); err != nil {
			return err
		}

		counts, err := db.ImportDevData(ctx, seedDir, db.SeedStores{
			Users:      stores.Users,
			Posts:      stores.Posts,
			Categories: stores.Categories,
		}, security.Cost)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Data successfully loaded: %d users, %d categories, %d posts\n",
			counts.Users, counts.Categories, counts.Posts)
		return nil
	},
}

var seedDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete all users, categories and posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !yes {
			return fmt.Errorf("refusing to delete data without --yes")
		}

		cfg := loadConfig()
		ctx := cmd.Context()

		stores, err := openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer stores.Close()

		if err := stores.DeleteDevData(ctx); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Data successfully deleted")
		return nil
	},
}

func init() {
	seedImportCmd.Flags().StringVar(&seedDir, "dir", "./dev-data", "Directory holding the JSON files")
	seedDeleteCmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	seedCmd.AddCommand(seedImportCmd, seedDeleteCmd)
}
