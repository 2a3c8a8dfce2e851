package cmd

import (
	"fmt"
	"log"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tracksCmd = &cobra.Command{
	Use:   "tracks [playlist-id]",
	Short: "Prints the tracks of a playlist",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		refresh, _ := cmd.Flags().GetBool("refresh")

		tracklistAPI, st := openAPI(settings, true)
		defer st.Close()

		userID := resolveUser(tracklistAPI, settings)
		rec, err := tracklistAPI.Tracks(cmd.Context(), userID, args[0], refresh)
		if err != nil {
			log.Fatalf("Failed to get tracks: %v", err)
		}

		fmt.Println(color.New(color.Bold).Sprint(rec.Name))
		for i, line := range rec.Listing().Lines() {
			fmt.Printf("%3d. %s\n", i+1, line)
		}
	},
}

func init() {
	rootCmd.AddCommand(tracksCmd)
	tracksCmd.Flags().Bool("refresh", false, "Fetch the tracks from Spotify even when cached")
}
