package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blang/semver/v4"
	"github.com/fatih/color"
	"github.com/google/go-github/v30/github"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tesh254/tracklist/internal/config"
	"github.com/tesh254/tracklist/internal/constants"
	"github.com/tesh254/tracklist/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "tracklist",
	Aliases: []string{"tl"},
	Short:   "Tracklist exports and analyzes playlist track lists.",
	Long: `Tracklist logs in to Spotify, lists your playlists and exports their tracks
as text, CSV, Markdown or JSON. It can also read the track list out of any
playlist page, analyze playlists by artist, album and genre, and serve all of
this as a web app or as MCP tools.`,
	Version: constants.VERSION(),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Handle version flag specially to show detailed info
		if versionFlag, _ := cmd.Flags().GetBool("version"); versionFlag {
			fmt.Println(constants.DETAILED_VERSION())
			return nil
		}

		if cmd.Flags().NFlag() == 0 && len(args) == 0 {
			fmt.Print(constants.ASCII)
			fmt.Println(constants.CurrentOSWithVersion())
			fmt.Printf("\n%s\n", constants.GetReleaseInfo())
		}
		return nil
	},
}

// Version command with multiple output formats
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Show version information for tracklist.

This command displays version information extracted automatically from
the Go build system, including Git commit, build date, and more.`,
	Run: func(cmd *cobra.Command, args []string) {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		shortFlag, _ := cmd.Flags().GetBool("short")
		commitFlag, _ := cmd.Flags().GetBool("commit")
		checkFlag, _ := cmd.Flags().GetBool("check")

		switch {
		case jsonFlag:
			fmt.Println(version.GetJSONVersion())
		case shortFlag:
			fmt.Println(version.GetShortVersion())
		case commitFlag:
			fmt.Println(version.GetVersionWithCommit())
		default:
			fmt.Println(version.GetDetailedVersion())

			if version.IsDevelopment() {
				fmt.Printf("\n%s This is a development build.\n", color.YellowString("Note:"))
			}
		}

		if checkFlag {
			checkVersion()
		}
	},
}

// Build info command for detailed build information
var buildInfoCmd = &cobra.Command{
	Use:   "buildinfo",
	Short: "Show detailed build information",
	Long:  `Show comprehensive build information including module details, VCS info, and build settings.`,
	Run: func(cmd *cobra.Command, args []string) {
		info := version.GetBuildInfo()

		fmt.Printf("Build Information:\n")
		fmt.Printf("==================\n")
		fmt.Printf("Version:      %s\n", info.Version)
		fmt.Printf("Git Commit:   %s\n", info.GitCommit)
		if info.GitTag != "unknown" {
			fmt.Printf("Git Tag:      %s\n", info.GitTag)
		}
		fmt.Printf("Build Date:   %s\n", info.BuildDate)
		fmt.Printf("Go Version:   %s\n", info.GoVersion)
		fmt.Printf("Platform:     %s\n", info.Platform)
		fmt.Printf("Compiler:     %s\n", info.Compiler)
		fmt.Printf("Modified:     %t\n", info.IsModified)
		if info.ModulePath != "" {
			fmt.Printf("Module Path:  %s\n", info.ModulePath)
		}
		if info.ModuleSum != "" {
			fmt.Printf("Module Sum:   %s\n", info.ModuleSum)
		}

		fmt.Printf("\nBuild Type:   ")
		if version.IsRelease() {
			fmt.Println(color.GreenString("Release"))
		} else {
			fmt.Println(color.YellowString("Development"))
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tracklist/config.yaml)")

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	rootCmd.PersistentFlags().String("db", filepath.Join(home, ".tracklist_data", "tracklist.db"), "Path to the database file")
	rootCmd.PersistentFlags().StringP("user", "u", "", "Spotify user id (defaults to the only logged in user)")

	versionCmd.Flags().Bool("json", false, "Output version information in JSON format")
	versionCmd.Flags().BoolP("short", "s", false, "Output short version only")
	versionCmd.Flags().BoolP("commit", "c", false, "Output version with commit hash")
	versionCmd.Flags().Bool("check", false, "Check GitHub for a newer release")
	rootCmd.AddCommand(buildInfoCmd)
	rootCmd.AddCommand(versionCmd)

	config.SetDefaults(viper.GetViper())
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		configPath := filepath.Join(home, ".tracklist")
		viper.AddConfigPath(configPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		// Create config file if it doesn't exist
		if err := os.MkdirAll(configPath, os.ModePerm); err != nil {
			fmt.Println("Error creating config directory:", err)
			os.Exit(1)
		}
		configFile := filepath.Join(configPath, "config.yaml")
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			if err := viper.SafeWriteConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					fmt.Println("Error writing config file:", err)
					os.Exit(1)
				}
			}
		}
	}

	// TRACKLIST_CLIENT_ID, TRACKLIST_CLIENT_SECRET, ...
	viper.SetEnvPrefix("tracklist")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

func checkVersion() {
	client := github.NewClient(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	release, _, err := client.Repositories.GetLatestRelease(ctx, constants.RepoOwner, constants.RepoName)
	if err != nil {
		fmt.Println("Could not check for a newer release:", err)
		return
	}

	latestVersion, err := semver.ParseTolerant(release.GetTagName())
	if err != nil {
		return
	}

	currentVersion, err := semver.ParseTolerant(version.GetVersion())
	if err != nil {
		return
	}

	if latestVersion.LE(currentVersion) {
		fmt.Println("You are running the latest release.")
		return
	}

	fmt.Printf("\nA new version of tracklist is available: %s\n", latestVersion)

	exe, err := os.Executable()
	if err != nil {
		return
	}

	var updateInstruction string
	if strings.Contains(exe, "brew") {
		updateInstruction = "To update, run: brew upgrade tracklist"
	} else {
		updateInstruction = "To update, run: go install github.com/tesh254/tracklist@latest"
	}

	border := strings.Repeat("─", len(updateInstruction)+4)
	fmt.Println("┌" + border + "┐")
	fmt.Println("│  " + updateInstruction + "  │")
	fmt.Println("└" + border + "┘")
}
