package cmd

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Deletes all users and cached playlists from the database",
	Run: func(cmd *cobra.Command, args []string) {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			reader := bufio.NewReader(os.Stdin)
			fmt.Println(color.RedString("WARNING: This will delete all data from the database and is not recoverable."))
			fmt.Print("Are you sure you want to continue? (yes/no): ")

			response, err := reader.ReadString('\n')
			if err != nil {
				log.Fatalf("Failed to read response: %v", err)
			}

			if strings.TrimSpace(strings.ToLower(response)) != "yes" {
				fmt.Println("Clean operation cancelled.")
				return
			}
		}

		settings := loadSettings()
		tracklistAPI, st := openAPI(settings, false)
		defer st.Close()

		if err := tracklistAPI.Clean(); err != nil {
			log.Fatalf("Failed to clean database: %v", err)
		}

		fmt.Println("Database cleaned successfully.")
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}
