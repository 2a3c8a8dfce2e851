package core

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesh254/tracklist/internal/api"
)

func connect(t *testing.T, a *api.API) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverT, clientT := mcp.NewInMemoryTransports()

	ss, err := NewMCP(a, nil).Server().Connect(ctx, serverT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callText(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool %s failed", name)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func login(t *testing.T, a *api.API) {
	t.Helper()
	_, err := a.Login(context.Background(), "good")
	require.NoError(t, err)
}

func TestListTools(t *testing.T) {
	cs := connect(t, newTestAPI(t))
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"extract_tracklist", "list_playlists", "analyze_playlist", "export_playlist"}, names)
}

func TestExtractTracklistTool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	page := `<html><head><title>Saved</title></head><body>
<h1 id="playlist_name">Mix</h1>
<div id="song_list_display">First By A - X<br>Second By B - Y</div>
</body></html>`
	require.NoError(t, os.WriteFile(path, []byte(page), 0o600))

	cs := connect(t, newTestAPI(t))
	out := callText(t, cs, "extract_tracklist", map[string]any{"url": path})
	assert.Equal(t, "First By A - X\nSecond By B - Y\n", out)

	out = callText(t, cs, "extract_tracklist", map[string]any{"url": path, "format": "csv"})
	assert.True(t, strings.HasPrefix(out, "song_name,artists,album\n"))
}

func TestPlaylistTools(t *testing.T) {
	a := newTestAPI(t)
	login(t, a)
	cs := connect(t, a)

	var listed struct {
		UserID    string `json:"user_id"`
		Total     int    `json:"total"`
		Playlists []struct {
			ID string `json:"id"`
		} `json:"playlists"`
	}
	require.NoError(t, json.Unmarshal([]byte(callText(t, cs, "list_playlists", map[string]any{})), &listed))
	assert.Equal(t, "user-1", listed.UserID)
	assert.Equal(t, 2, listed.Total)
	assert.Equal(t, "pl1", listed.Playlists[0].ID)

	var analysis struct {
		Tracks  int `json:"tracks"`
		Artists struct {
			Entries []struct {
				Name  string `json:"name"`
				Count int    `json:"count"`
			} `json:"entries"`
		} `json:"artists"`
		Genres struct {
			Total int `json:"total"`
		} `json:"genres"`
	}
	out := callText(t, cs, "analyze_playlist", map[string]any{"playlist_id": "pl1", "genres": true})
	require.NoError(t, json.Unmarshal([]byte(out), &analysis))
	assert.Equal(t, 3, analysis.Tracks)
	assert.Equal(t, "Alpha", analysis.Artists.Entries[0].Name)
	assert.Equal(t, 3, analysis.Genres.Total)

	out = callText(t, cs, "export_playlist", map[string]any{"user_id": "user-1", "playlist_id": "pl1", "format": "md"})
	assert.Contains(t, out, "Road Trip")
	assert.Contains(t, out, "Three By Bravo")
}

func TestToolErrors(t *testing.T) {
	cs := connect(t, newTestAPI(t))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "list_playlists",
		Arguments: map[string]any{},
	})
	assert.True(t, err != nil || res.IsError)

	res, err = cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "extract_tracklist",
		Arguments: map[string]any{"url": filepath.Join(t.TempDir(), "missing.html")},
	})
	assert.True(t, err != nil || res.IsError)
}
