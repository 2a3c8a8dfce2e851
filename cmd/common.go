package cmd

import (
	"log"

	"github.com/spf13/viper"

	"github.com/tesh254/tracklist/internal/api"
	"github.com/tesh254/tracklist/internal/config"
	"github.com/tesh254/tracklist/internal/spotify"
	"github.com/tesh254/tracklist/internal/storage"
)

func loadSettings() *config.Settings {
	settings, err := config.FromViper(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return settings
}

// openAPI opens the database and wires the Spotify client. The caller closes
// the returned storage.
func openAPI(settings *config.Settings, requireCredentials bool) (*api.API, *storage.Storage) {
	if requireCredentials {
		if err := settings.RequireCredentials(); err != nil {
			log.Fatalf("%v", err)
		}
	}

	st, err := storage.NewStorage(settings.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	client := spotify.NewClient(spotify.Credentials{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		RedirectURL:  settings.RedirectURL(),
	})
	return api.NewAPI(st, client), st
}

// resolveUser picks the user for commands that act on one Spotify account.
func resolveUser(a *api.API, settings *config.Settings) string {
	userID, err := a.ResolveUser(settings.User)
	if err != nil {
		log.Fatalf("%v; pass --user or log in through `tracklist serve`", err)
	}
	return userID
}
