// Command seed populates the database with demo data.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tandem/internal/config"
	"tandem/internal/database"
	"tandem/internal/middleware"
	"tandem/internal/seed"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	numUsers        int
	numPlans        int
	messagesPerPair int
	chatPerPlan     int
	cleanFirst      bool
	fastHash        bool
	randSeed        int64
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo data",
	Long: `seed manages demo data for local development.

All seeded users share the password ` + seed.DefaultPassword + `.`,
	SilenceUsage: true,
}

func init() {
	demoCmd.Flags().IntVar(&numUsers, "users", 20, "Number of users to create")
	demoCmd.Flags().IntVar(&numPlans, "plans", 8, "Number of shared plans to create")
	demoCmd.Flags().IntVar(&messagesPerPair, "messages", 6, "Direct messages per friend pair")
	demoCmd.Flags().IntVar(&chatPerPlan, "chat", 10, "Chat messages per plan")
	demoCmd.Flags().BoolVar(&cleanFirst, "clean", true, "Remove existing data before seeding")
	demoCmd.Flags().BoolVar(&fastHash, "fast-hash", true, "Hash the shared password at minimum bcrypt cost")
	demoCmd.Flags().Int64Var(&randSeed, "rand-seed", 0, "Seed for generated content (0 uses the clock)")

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(migrateCmd)
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Create users, friendships, conversations and shared plans",
	Long: `Create a connected demo data set.

Examples:
  # Default size
  seed demo

  # Larger mesh, keep existing rows
  seed demo --users 200 --plans 50 --clean=false`,
	RunE: runDemo,
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all rows from the application tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		if err := seed.Clean(cmd.Context(), db); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
		middleware.Logger.Info("database cleaned")
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the schema up to date",
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		middleware.Logger.Info("database migration completed")
		return nil
	},
}

func runDemo(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	db, err := connect()
	if err != nil {
		return err
	}
	if cleanFirst {
		if err := seed.Clean(ctx, db); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
	}

	s, err := seed.NewSeeder(db, seed.Options{
		Users:           numUsers,
		Plans:           numPlans,
		MessagesPerPair: messagesPerPair,
		ChatPerPlan:     chatPerPlan,
		SkipBcrypt:      fastHash,
		RandSeed:        randSeed,
	})
	if err != nil {
		return err
	}
	res, err := s.Demo(ctx)
	if err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "users=%d friendships=%d direct_messages=%d plans=%d members=%d tasks=%d plan_messages=%d\n",
		res.Users, res.Friendships, res.DirectMessages, res.Plans, res.Members, res.Tasks, res.PlanMessages)
	return nil
}

func connect() (*gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	middleware.InitLogger(cfg.Env, cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		middleware.Logger.Error("database connect failed", zap.Error(err))
		return nil, err
	}
	return db, nil
}
