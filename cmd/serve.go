package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tesh254/tracklist/internal/core"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the web app for logging in and browsing playlists",
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		tracklistAPI, st := openAPI(settings, true)
		defer st.Close()

		web, err := core.NewWeb(tracklistAPI, settings)
		if err != nil {
			log.Fatalf("Failed to build web app: %v", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := web.Serve(ctx, os.Stdout); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "Host to listen on")
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (PORT in the environment wins)")
	serveCmd.Flags().BoolP("debug", "d", false, "Log every request")
	serveCmd.Flags().String("base-url", "", "Public URL of the app (default http://localhost:<port>)")
	viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("debug", serveCmd.Flags().Lookup("debug"))
	viper.BindPFlag("base_url", serveCmd.Flags().Lookup("base-url"))
}
