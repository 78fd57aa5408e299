// Ornabot - the Orna business assistant.
//
// A Telegram bot that answers customers about products and orders and
// gives the team live sales and inventory answers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "ornabot",
	Short: "Ornabot - the Orna business assistant",
	Long: `Ornabot runs the Orna Telegram assistant: customer support,
order tracking, and admin business insights in one bot.

  ornabot serve     Start the bot, schedulers, and ops API
  ornabot status    Show server status
  ornabot seed      Load demo products and orders`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("ORNABOT_SERVER", "http://localhost:7270"), "Ornabot ops API URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
