package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var playlistsCmd = &cobra.Command{
	Use:   "playlists",
	Short: "Lists the playlists of a Spotify user",
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		cached, _ := cmd.Flags().GetBool("cached")

		tracklistAPI, st := openAPI(settings, !cached)
		defer st.Close()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)

		if cached {
			recs, err := tracklistAPI.CachedPlaylists(settings.User)
			if err != nil {
				log.Fatalf("Failed to list cached playlists: %v", err)
			}
			if len(recs) == 0 {
				fmt.Println("No cached playlists found.")
				return
			}
			t.AppendHeader(table.Row{"ID", "Name", "User", "Tracks", "Fetched"})
			for _, rec := range recs {
				t.AppendRow(table.Row{rec.ID, rec.Name, rec.UserID, len(rec.Tracks), rec.FetchedAt.Format("2006-01-02 15:04")})
			}
			t.Render()
			return
		}

		userID := resolveUser(tracklistAPI, settings)
		playlists, err := tracklistAPI.Playlists(cmd.Context(), userID)
		if err != nil {
			log.Fatalf("Failed to list playlists: %v", err)
		}
		if len(playlists) == 0 {
			fmt.Println("This user has no playlists.")
			return
		}
		t.SetTitle("Playlists of " + userID)
		t.AppendHeader(table.Row{"ID", "Name", "Owner", "Tracks"})
		for _, p := range playlists {
			t.AppendRow(table.Row{p.ID, p.Name, p.Owner, p.TrackCount})
		}
		t.Render()
	},
}

func init() {
	rootCmd.AddCommand(playlistsCmd)
	playlistsCmd.Flags().Bool("cached", false, "List playlists cached in the database instead of asking Spotify")
}
