package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tesh254/tracklist/internal/core"
	"github.com/tesh254/tracklist/internal/scraper"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Starts the MCP server",
	Run: func(cmd *cobra.Command, args []string) {
		settings := loadSettings()
		transport := viper.GetString("transport")
		httpAddress := viper.GetString("http-address")

		tracklistAPI, st := openAPI(settings, false)
		defer st.Close()

		cfg := scraper.DefaultConfig()
		if settings.RenderTimeout > 0 {
			cfg.Timeout = settings.RenderTimeout
		}
		server := core.NewMCP(tracklistAPI, cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var err error
		switch transport {
		case "http":
			err = server.ServeHTTP(ctx, httpAddress)
		case "stdio", "":
			err = server.ServeStdio(ctx)
		default:
			log.Fatalf("Unknown transport %q (want stdio or http)", transport)
		}
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("http-address", "localhost:9014", "HTTP address to listen on")
	mcpCmd.Flags().String("transport", "stdio", "Transport type (stdio or http)")
	viper.BindPFlag("http-address", mcpCmd.Flags().Lookup("http-address"))
	viper.BindPFlag("transport", mcpCmd.Flags().Lookup("transport"))
}
