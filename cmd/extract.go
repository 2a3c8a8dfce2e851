package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tesh254/tracklist/internal/scraper"
	"github.com/tesh254/tracklist/internal/tracklist"
)

var extractCmd = &cobra.Command{
	Use:   "extract [url|file]...",
	Short: "Reads the track list out of playlist pages or saved HTML files",
	Long: `Reads the track list out of one or more playlist pages and saves each one
as <playlist name>.<format>. Pages are matched by the ids the tracklist web app
renders (#song_list_display and #playlist_name); use --list-id and --name-id
for other pages, and --render for pages that build their list in JavaScript.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		outDir, _ := cmd.Flags().GetString("out")
		formatName, _ := cmd.Flags().GetString("format")
		render, _ := cmd.Flags().GetBool("render")
		listID, _ := cmd.Flags().GetString("list-id")
		nameID, _ := cmd.Flags().GetString("name-id")
		toStdout, _ := cmd.Flags().GetBool("stdout")
		verbose, _ := cmd.Flags().GetBool("verbose")

		format, err := tracklist.ParseFormat(formatName)
		if err != nil {
			log.Fatalf("%v", err)
		}

		cfg := scraper.DefaultConfig()
		cfg.Render = render
		cfg.Verbose = verbose && !toStdout
		if render && settings.RenderTimeout > 0 {
			cfg.Timeout = settings.RenderTimeout
		}
		if listID != "" {
			cfg.ListSelector = selector(listID)
		}
		if nameID != "" {
			cfg.NameSelector = selector(nameID)
		}

		listings, err := scraper.ExtractAll(cmd.Context(), args, cfg)
		if err != nil {
			log.Fatalf("Failed to extract track list: %v", err)
		}

		if toStdout {
			for _, l := range listings {
				if err := tracklist.Encode(os.Stdout, l, format); err != nil {
					log.Fatalf("Failed to write track list: %v", err)
				}
			}
			return
		}

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
		used := make(map[string]int)
		for _, l := range listings {
			path := filepath.Join(outDir, uniqueFilename(used, tracklist.Filename(l.Name, format)))
			if err := writeListing(path, l, format); err != nil {
				log.Fatalf("%v", err)
			}
			fmt.Printf("%s %s (%d tracks)\n", color.GreenString("Saved"), path, l.Len())
		}
	},
}

// selector turns a bare element id into an id selector.
func selector(id string) string {
	if strings.HasPrefix(id, "#") || strings.HasPrefix(id, ".") {
		return id
	}
	return "#" + id
}

// uniqueFilename suffixes repeated names with -2, -3, and so on.
func uniqueFilename(used map[string]int, name string) string {
	used[name]++
	if used[name] == 1 {
		return name
	}
	ext := filepath.Ext(name)
	candidate := fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), used[name], ext)
	return uniqueFilename(used, candidate)
}

func writeListing(path string, l *tracklist.Listing, format tracklist.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := tracklist.Encode(f, l, format); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringP("out", "o", ".", "Directory the track lists are saved in")
	extractCmd.Flags().StringP("format", "f", "txt", "Output format: txt, csv, md or json")
	extractCmd.Flags().BoolP("render", "r", false, "Load pages in a headless browser")
	extractCmd.Flags().String("list-id", "", "Id of the element holding the track list")
	extractCmd.Flags().String("name-id", "", "Id of the element holding the playlist name")
	extractCmd.Flags().Bool("stdout", false, "Print the track lists instead of saving them")
	extractCmd.Flags().BoolP("verbose", "v", false, "Enable verbose output")
}
