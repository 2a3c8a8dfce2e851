package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tesh254/tracklist/internal/api"
	"github.com/tesh254/tracklist/internal/scraper"
	"github.com/tesh254/tracklist/internal/tracklist"
	"github.com/tesh254/tracklist/internal/version"
)

// MCP exposes tracklist extraction and the Spotify playlist tools to MCP
// clients.
type MCP struct {
	api     *api.API
	scraper *scraper.Config
}

type ExtractTracklistArgs struct {
	URL    string `json:"url" jsonschema:"page URL or local HTML file holding the track list"`
	Format string `json:"format,omitempty" jsonschema:"output format: txt, csv, md or json (default txt)"`
	Render bool   `json:"render,omitempty" jsonschema:"load the page in a headless browser before reading it"`
}

type ListPlaylistsArgs struct {
	UserID string `json:"user_id,omitempty" jsonschema:"Spotify user id; defaults to the only logged in user"`
}

type AnalyzePlaylistArgs struct {
	UserID     string `json:"user_id,omitempty" jsonschema:"Spotify user id; defaults to the only logged in user"`
	PlaylistID string `json:"playlist_id" jsonschema:"Spotify playlist id"`
	Genres     bool   `json:"genres,omitempty" jsonschema:"also chart the genres of the primary artists"`
}

type ExportPlaylistArgs struct {
	UserID     string `json:"user_id,omitempty" jsonschema:"Spotify user id; defaults to the only logged in user"`
	PlaylistID string `json:"playlist_id" jsonschema:"Spotify playlist id"`
	Format     string `json:"format,omitempty" jsonschema:"output format: txt, csv, md or json (default txt)"`
}

// NewMCP creates the MCP front end. cfg is the base scraper configuration
// for extract_tracklist; a nil cfg uses the defaults.
func NewMCP(a *api.API, cfg *scraper.Config) *MCP {
	if cfg == nil {
		cfg = scraper.DefaultConfig()
	}
	return &MCP{api: a, scraper: cfg}
}

// Server builds an MCP server with every tool registered.
func (m *MCP) Server() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "Tracklist MCP Server", Version: version.GetVersion()}, nil)
	m.registerTools(server)
	return server
}

// ServeStdio serves MCP over stdin and stdout, logging traffic to stderr.
func (m *MCP) ServeStdio(ctx context.Context) error {
	t := &mcp.LoggingTransport{Transport: &mcp.StdioTransport{}, Writer: os.Stderr}
	log.Printf("[INFO] Starting Tracklist MCP server with stdio transport")
	return m.Server().Run(ctx, t)
}

// ServeHTTP serves MCP over streamable HTTP until ctx is cancelled.
func (m *MCP) ServeHTTP(ctx context.Context, httpAddress string) error {
	server := m.Server()
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
	srv := &http.Server{Addr: httpAddress, Handler: loggingHandler(handler), ReadHeaderTimeout: 10 * time.Second}
	log.Printf("[INFO] Tracklist MCP handler listening at %s", httpAddress)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return textResult(string(result)), nil
}

func encodeListing(l *tracklist.Listing, format string) (string, error) {
	f, err := tracklist.ParseFormat(format)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tracklist.Encode(&buf, l, f); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (m *MCP) extract(ctx context.Context, args ExtractTracklistArgs) (string, error) {
	if args.URL == "" {
		return "", errors.New("url is required")
	}
	cfg := *m.scraper
	cfg.Render = cfg.Render || args.Render
	cfg.Verbose = false
	l, err := scraper.Extract(ctx, args.URL, &cfg)
	if err != nil {
		return "", err
	}
	return encodeListing(l, args.Format)
}

func (m *MCP) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "extract_tracklist",
		Description: "Extract the track list of a playlist page and return it as text, CSV, Markdown or JSON.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ExtractTracklistArgs) (*mcp.CallToolResult, any, error) {
		out, err := m.extract(ctx, args)
		if err != nil {
			return nil, nil, err
		}
		return textResult(out), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_playlists",
		Description: "List the Spotify playlists of a logged in user.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListPlaylistsArgs) (*mcp.CallToolResult, any, error) {
		userID, err := m.api.ResolveUser(args.UserID)
		if err != nil {
			return nil, nil, err
		}
		playlists, err := m.api.Playlists(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		result, err := jsonResult(map[string]any{"user_id": userID, "playlists": playlists, "total": len(playlists)})
		return result, nil, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_playlist",
		Description: "Count the tracks of a Spotify playlist per artist and album, and optionally per genre.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AnalyzePlaylistArgs) (*mcp.CallToolResult, any, error) {
		userID, err := m.api.ResolveUser(args.UserID)
		if err != nil {
			return nil, nil, err
		}
		analysis, err := m.api.Analyze(ctx, userID, args.PlaylistID, args.Genres)
		if err != nil {
			return nil, nil, err
		}
		result, err := jsonResult(analysis)
		return result, nil, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_playlist",
		Description: "Export the tracks of a Spotify playlist as text, CSV, Markdown or JSON.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ExportPlaylistArgs) (*mcp.CallToolResult, any, error) {
		userID, err := m.api.ResolveUser(args.UserID)
		if err != nil {
			return nil, nil, err
		}
		l, err := m.api.Listing(ctx, userID, args.PlaylistID)
		if err != nil {
			return nil, nil, err
		}
		out, err := encodeListing(l, args.Format)
		if err != nil {
			return nil, nil, err
		}
		return textResult(out), nil, nil
	})
}
