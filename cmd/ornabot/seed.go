package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ornabd/ornabot/internal/config"
	"github.com/ornabd/ornabot/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo products and orders",
	Long:  "Populate the database with demo catalog and order data for local development.",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	if err := st.Seed(); err != nil {
		return fmt.Errorf("seeding: %w", err)
	}

	fmt.Printf("Seeded demo data into %s\n", cfg.DatabasePath)
	return nil
}
