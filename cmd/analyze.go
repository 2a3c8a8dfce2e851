package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/tesh254/tracklist/internal/analyzer"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [playlist-id]",
	Short: "Counts the tracks of a playlist per artist, album and genre",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		withGenres, _ := cmd.Flags().GetBool("genres")
		top, _ := cmd.Flags().GetInt("top")
		asJSON, _ := cmd.Flags().GetBool("json")

		tracklistAPI, st := openAPI(settings, true)
		defer st.Close()

		userID := resolveUser(tracklistAPI, settings)
		result, err := tracklistAPI.Analyze(cmd.Context(), userID, args[0], withGenres)
		if err != nil {
			log.Fatalf("Failed to analyze playlist: %v", err)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				log.Fatalf("Failed to encode analysis: %v", err)
			}
			return
		}

		fmt.Printf("%d tracks\n\n", result.Tracks)
		charts := []analyzer.Chart{result.Artists, result.Albums}
		if withGenres {
			charts = append(charts, result.Genres)
		}
		for _, c := range charts {
			c.Entries = c.Top(top)
			c.Render(os.Stdout)
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolP("genres", "g", false, "Also chart the genres of the primary artists")
	analyzeCmd.Flags().IntP("top", "n", 10, "Rows per chart (0 for all)")
	analyzeCmd.Flags().Bool("json", false, "Print the analysis as JSON")
}
