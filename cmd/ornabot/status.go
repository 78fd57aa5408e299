package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	resp, err := http.Get(serverURL + "/api/status")
	if err != nil {
		return fmt.Errorf("connecting to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}

	var st struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
		Cache  struct {
			Entries int `json:"entries"`
		} `json:"cache"`
		Scheduler struct {
			Running       bool   `json:"running"`
			SiteUp        bool   `json:"site_up"`
			LastSeenOrder int64  `json:"last_seen_order"`
			LastPollAt    string `json:"last_poll_at"`
		} `json:"scheduler"`
		Sessions struct {
			Sessions  int `json:"sessions"`
			Admins    int `json:"admins"`
			Active24h int `json:"active_24h"`
			Messages  int `json:"messages"`
		} `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	fmt.Printf("Status:     %s\n", st.Status)
	fmt.Printf("Uptime:     %s\n", st.Uptime)
	fmt.Printf("Cache:      %d entries\n", st.Cache.Entries)
	fmt.Printf("Scheduler:  running=%t site_up=%t last_order=%d\n",
		st.Scheduler.Running, st.Scheduler.SiteUp, st.Scheduler.LastSeenOrder)
	fmt.Printf("Sessions:   %d (%d admin), %d active in 24h, %d messages\n",
		st.Sessions.Sessions, st.Sessions.Admins, st.Sessions.Active24h, st.Sessions.Messages)

	return nil
}
