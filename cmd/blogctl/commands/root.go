package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/geocoder89/blogapi/internal/config"
	"github.com/geocoder89/blogapi/internal/observability"
	"github.com/geocoder89/blogapi/internal/repo"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	dbURL   string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "blogctl",
	Short: "Operator tool for the blog API",
	Long: `blogctl runs one-off maintenance tasks against the blog database:
applying migrations, loading or wiping development data, and creating the
configured admin account.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (defaults to DATABASE_URL / DB_* env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(migrateCmd, seedCmd, adminCmd)
}

func loadConfig() config.Config {
	cfg := config.Load()
	if dbURL != "" {
		cfg.DBURL = dbURL
	}
	// maintenance always targets the durable store
	cfg.StoreDriver = repo.DriverPostgres
	return cfg
}

func logger(cfg config.Config) *slog.Logger {
	if verbose {
		return observability.NewLogger("dev")
	}
	return observability.NewLogger(cfg.Env)
}

func openStores(ctx context.Context, cfg config.Config) (*repo.Stores, error) {
	return repo.Open(ctx, cfg, nil)
}
