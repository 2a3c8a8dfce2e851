package constants

import (
	"fmt"
	"runtime"

	"github.com/tesh254/tracklist/internal/version"
)

const ASCII = `
 _                  _    _ _     _
| |_ _ __ __ _  ___| | _| (_)___| |_
| __| '__/ _' |/ __| |/ / | / __| __|
| |_| | | (_| | (__|   <| | \__ \ |_
 \__|_|  \__,_|\___|_|\_\_|_|___/\__|

`

// Element ids of the playlist page. The web app renders them and the scraper
// looks for them by default.
const (
	SongListID     = "song_list_display"
	PlaylistNameID = "playlist_name"
)

// Labels used by the analyzer for missing metadata.
const (
	NoAlbumName   = "No Album Name"
	UnknownArtist = "Unknown Artist"
	UnknownGenre  = "Unknown Genre"
)

const (
	AppTitle    = "Spotify Playlist Tracklist"
	RepoOwner   = "tesh254"
	RepoName    = "tracklist"
	DefaultPort = 8080
)

func VERSION() string {
	return version.GetVersion()
}

func DETAILED_VERSION() string {
	return version.GetDetailedVersion()
}

func CurrentOSWithVersion() string {
	return fmt.Sprintf("%s %s/%s", VERSION(), runtime.GOOS, runtime.GOARCH)
}

func GetReleaseInfo() string {
	if version.IsRelease() {
		return fmt.Sprintf("Release %s", VERSION())
	}
	return "Development build, run `tracklist buildinfo` for details"
}
