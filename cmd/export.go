package cmd

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tesh254/tracklist/internal/tracklist"
)

var exportCmd = &cobra.Command{
	Use:   "export [playlist-id]",
	Short: "Saves the tracks of a playlist as text, CSV, Markdown or JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		formatName, _ := cmd.Flags().GetString("format")
		outDir, _ := cmd.Flags().GetString("out")
		toStdout, _ := cmd.Flags().GetBool("stdout")

		format, err := tracklist.ParseFormat(formatName)
		if err != nil {
			log.Fatalf("%v", err)
		}

		tracklistAPI, st := openAPI(settings, true)
		defer st.Close()

		userID := resolveUser(tracklistAPI, settings)
		var buf bytes.Buffer
		filename, err := tracklistAPI.Export(cmd.Context(), userID, args[0], format, &buf)
		if err != nil {
			log.Fatalf("Failed to export playlist: %v", err)
		}

		if toStdout {
			if _, err := buf.WriteTo(os.Stdout); err != nil {
				log.Fatalf("Failed to write playlist: %v", err)
			}
			return
		}

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
		path := filepath.Join(outDir, filename)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			log.Fatalf("Failed to write %s: %v", path, err)
		}
		fmt.Printf("Saved %s\n", path)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", "txt", "Output format: txt, csv, md or json")
	exportCmd.Flags().StringP("out", "o", ".", "Directory the file is saved in")
	exportCmd.Flags().Bool("stdout", false, "Print the playlist instead of saving it")
}
