package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"newsdb/pkg/models"
)

func init() {
	rootCmd.AddCommand(groupsCmd)
	groupsCmd.AddCommand(groupsAddCmd)
	groupsCmd.AddCommand(groupsRmCmd)
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List cached newsgroups and their sync state",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Groups []models.Group `json:"groups"`
		}
		if err := apiJSON("GET", "/v1/groups", nil, &resp); err != nil {
			return err
		}
		if len(resp.Groups) == 0 {
			fmt.Println("no groups cached")
			return nil
		}
		fmt.Printf("%-40s %10s %10s %10s  %s\n", "GROUP", "LOW", "HIGH", "SYNCED", "LAST SYNC")
		for _, g := range resp.Groups {
			last := "never"
			if g.LastSyncTS > 0 {
				last = time.Unix(0, g.LastSyncTS).Format(time.RFC3339)
			}
			name := g.Name
			if !g.Subscribed {
				name += " (unsubscribed)"
			}
			fmt.Printf("%-40s %10d %10d %10d  %s\n", name, g.Low, g.High, g.SyncedHigh, last)
		}
		return nil
	},
}

var groupsAddCmd = &cobra.Command{
	Use:   "add <group>",
	Short: "Subscribe to a newsgroup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := strings.NewReader(fmt.Sprintf(`{"name":%q}`, args[0]))
		var g models.Group
		if err := apiJSON("POST", "/v1/groups", body, &g); err != nil {
			return err
		}
		fmt.Printf("subscribed %s (articles %d-%d upstream)\n", g.Name, g.Low, g.High)
		return nil
	},
}

var groupsRmCmd = &cobra.Command{
	Use:   "rm <group>",
	Short: "Unsubscribe and drop cached articles (backend key required)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiJSON("DELETE", "/v1/groups/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", args[0])
		return nil
	},
}
