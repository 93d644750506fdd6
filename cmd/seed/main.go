package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/captionflow/configs"
	"github.com/maheshrc27/captionflow/internal/repository"
	"github.com/maheshrc27/captionflow/internal/seed"
	"github.com/spf13/cobra"
)

var opts seed.Options
var ownerID string

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create demo menu content for a user",
	RunE:  runSeed,
}

func init() {
	rootCmd.Flags().StringVarP(&ownerID, "user", "u", "", "owner user id (uuid)")
	rootCmd.Flags().IntVar(&opts.Products, "products", 8, "number of products")
	rootCmd.Flags().IntVar(&opts.Images, "images", 4, "number of general images")
	rootCmd.Flags().Float64Var(&opts.CaptionRatio, "captioned", 0.5, "share of items created with a caption")
	rootCmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "build items without writing them")
	rootCmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed, 0 for time based")
	_ = rootCmd.MarkFlagRequired("user")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	if _, err := uuid.Parse(ownerID); err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	_ = godotenv.Load()
	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if !opts.DryRun {
		if err := db.PingContext(cmd.Context()); err != nil {
			return fmt.Errorf("database is unreachable: %w", err)
		}
	}

	items, err := seed.NewFactory(repository.NewContentRepository(db), opts).Run(cmd.Context(), ownerID)
	if err != nil {
		return err
	}
	for _, item := range items {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", item.Kind, item.ID, item.Name)
	}
	return nil
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
