package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Lists the Spotify users logged in on this machine",
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		tracklistAPI, st := openAPI(settings, false)
		defer st.Close()

		users, err := tracklistAPI.Users()
		if err != nil {
			log.Fatalf("Failed to list users: %v", err)
		}
		if len(users) == 0 {
			fmt.Println("No users found. Log in through `tracklist serve`.")
			return
		}

		now := time.Now()
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"User", "Token Valid Until", "Status"})
		for _, u := range users {
			status := color.GreenString("valid")
			if now.After(u.Expiry) {
				status = color.YellowString("expired")
				if u.RefreshToken != "" {
					status += " (refreshable)"
				}
			}
			t.AppendRow(table.Row{u.UserID, u.Expiry.Local().Format("01/02/2006 15:04:05"), status})
		}
		t.Render()
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout [user-id]",
	Short: "Forgets a user's token and cached playlists",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		tracklistAPI, st := openAPI(settings, false)
		defer st.Close()

		if err := tracklistAPI.Logout(args[0]); err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Printf("User '%s' logged out.\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(logoutCmd)
}
