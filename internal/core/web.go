package core

import (
	"bytes"
	"context"
	"crypto/sha256"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"github.com/tesh254/tracklist/internal/analyzer"
	"github.com/tesh254/tracklist/internal/api"
	"github.com/tesh254/tracklist/internal/config"
	"github.com/tesh254/tracklist/internal/constants"
	"github.com/tesh254/tracklist/internal/spotify"
	"github.com/tesh254/tracklist/internal/tracklist"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	sessionName     = "tracklist"
	sessionUserKey  = "user_id"
	sessionStateKey = "oauth_state"
)

type ctxKey int

const userKey ctxKey = iota

// Web is the browser front end: Spotify login and playlist pages.
type Web struct {
	api       *api.API
	settings  *config.Settings
	sessions  sessions.Store
	templates *template.Template
	router    *mux.Router
}

type page struct {
	Title  string
	UserID string
}

type playlistsPage struct {
	page
	Playlists []spotify.Playlist
}

type analysisPage struct {
	page
	PlaylistID string
	Name       string
	Result     *analyzer.Result
	Charts     []analyzer.Chart
}

type trackView struct {
	ID      string
	Name    string
	Artists string
	Album   string
}

type playlistPage struct {
	page
	PlaylistID string
	Name       string
	NameID     string
	ListID     string
	Formats    []tracklist.Format
	Tracks     []trackView
}

type errorPage struct {
	page
	Status  int
	Message string
}

// NewWeb builds the web app. Session cookies are signed with a key derived
// from the Spotify client secret.
func NewWeb(a *api.API, s *config.Settings) (*Web, error) {
	tpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	key := sha256.Sum256([]byte(s.ClientSecret))
	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	w := &Web{
		api:       a,
		settings:  s,
		sessions:  store,
		templates: tpl,
	}
	w.routes()
	return w, nil
}

func (w *Web) routes() {
	r := mux.NewRouter()
	r.Handle("/", w.requireLogin(w.home)).Methods(http.MethodGet)
	r.Handle("/logout", w.requireLogin(w.logout)).Methods(http.MethodGet)
	r.HandleFunc("/spotify_authorize", w.authorize).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/redirect_after_auth", w.redirectAfterAuth).Methods(http.MethodGet)
	r.Handle("/playlist_metrics", w.requireLogin(w.playlistMetrics)).Methods(http.MethodGet)
	r.Handle("/analyze_playlist/artists/{playlist_id}", w.requireLogin(w.analyzeArtists)).Methods(http.MethodGet)
	r.Handle("/analyze_playlist/genre/{playlist_id}", w.requireLogin(w.analyzeGenre)).Methods(http.MethodGet)
	r.Handle("/playlist/{playlist_id}", w.requireLogin(w.playlist)).Methods(http.MethodGet)
	r.Handle("/playlist/{playlist_id}/download.{format}", w.requireLogin(w.download)).Methods(http.MethodGet)
	r.HandleFunc("/get-site-links", w.siteLinks).Methods(http.MethodGet)
	w.router = r
}

// Handler returns the routes, with access logging in debug mode.
func (w *Web) Handler() http.Handler {
	return accessLog(w.settings.Debug, w.router)
}

// SiteLinks lists the absolute URL of every GET route without path
// variables, sorted.
func (w *Web) SiteLinks() []string {
	var links []string
	_ = w.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil || strings.Contains(path, "{") {
			return nil
		}
		if methods, err := route.GetMethods(); err == nil && !slices.Contains(methods, http.MethodGet) {
			return nil
		}
		links = append(links, w.settings.BaseURL+path)
		return nil
	})
	sort.Strings(links)
	return links
}

// PrintLinks writes the site links to out.
func (w *Web) PrintLinks(out io.Writer) {
	fmt.Fprintln(out, color.New(color.FgCyan, color.Bold).Sprint("Existing URLs:"))
	for _, link := range w.SiteLinks() {
		fmt.Fprintln(out, link)
	}
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts the server down gracefully.
func (w *Web) Serve(ctx context.Context, out io.Writer) error {
	srv := &http.Server{
		Addr:              w.settings.Addr(),
		Handler:           w.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	w.PrintLinks(out)
	log.Printf("[INFO] Web app listening at %s", srv.Addr)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Printf("[INFO] Shutting down web app")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (w *Web) session(r *http.Request) *sessions.Session {
	// A cookie signed with another key yields a fresh session and an error.
	sess, _ := w.sessions.Get(r, sessionName)
	return sess
}

func (w *Web) sessionUser(r *http.Request) string {
	id, _ := w.session(r).Values[sessionUserKey].(string)
	return id
}

func currentUser(ctx context.Context) string {
	id, _ := ctx.Value(userKey).(string)
	return id
}

func (w *Web) requireLogin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		userID := w.sessionUser(r)
		if !w.api.LoggedIn(r.Context(), userID) {
			http.Redirect(rw, r, "/spotify_authorize", http.StatusFound)
			return
		}
		next(rw, r.WithContext(context.WithValue(r.Context(), userKey, userID)))
	})
}

func (w *Web) newPage(r *http.Request) page {
	return page{Title: constants.AppTitle, UserID: currentUser(r.Context())}
}

func (w *Web) render(rw http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := w.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("[ERROR] Failed to render %s: %v", name, err)
		http.Error(rw, "internal server error", http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.WriteHeader(status)
	_, _ = buf.WriteTo(rw)
}

func (w *Web) renderError(rw http.ResponseWriter, r *http.Request, status int, message string) {
	w.render(rw, status, "error.html", errorPage{page: w.newPage(r), Status: status, Message: message})
}

// fail maps err to a response. Authentication failures send the user back
// through the login flow.
func (w *Web) fail(rw http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, spotify.ErrTokenExpired) || errors.Is(err, api.ErrNotLoggedIn) {
		http.Redirect(rw, r, "/spotify_authorize", http.StatusFound)
		return
	}
	var apiErr *spotify.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusNotFound {
			w.renderError(rw, r, http.StatusNotFound, "Playlist not found")
			return
		}
		log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
		w.renderError(rw, r, http.StatusBadGateway, "Spotify could not answer the request")
		return
	}
	log.Printf("[ERROR] %s %s: %v", r.Method, r.URL.Path, err)
	w.renderError(rw, r, http.StatusInternalServerError, "Something went wrong")
}

func (w *Web) authorize(rw http.ResponseWriter, r *http.Request) {
	if w.api.LoggedIn(r.Context(), w.sessionUser(r)) {
		http.Redirect(rw, r, "/", http.StatusFound)
		return
	}
	state := uuid.NewString()
	sess := w.session(r)
	sess.Values[sessionStateKey] = state
	if err := sess.Save(r, rw); err != nil {
		log.Printf("[ERROR] Failed to save session: %v", err)
		w.renderError(rw, r, http.StatusInternalServerError, "Could not start the login")
		return
	}
	http.Redirect(rw, r, w.api.AuthCodeURL(state), http.StatusFound)
}

func (w *Web) redirectAfterAuth(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess := w.session(r)
	want, _ := sess.Values[sessionStateKey].(string)
	delete(sess.Values, sessionStateKey)

	if reason := q.Get("error"); reason != "" {
		_ = sess.Save(r, rw)
		w.renderError(rw, r, http.StatusUnauthorized, "Spotify authorization failed: "+reason)
		return
	}
	if want == "" || q.Get("state") != want {
		_ = sess.Save(r, rw)
		w.renderError(rw, r, http.StatusBadRequest, "Authorization state does not match")
		return
	}

	userID, err := w.api.Login(r.Context(), q.Get("code"))
	if err != nil {
		_ = sess.Save(r, rw)
		log.Printf("[ERROR] Login failed: %v", err)
		w.renderError(rw, r, http.StatusUnauthorized, "Could not get an access token from Spotify")
		return
	}
	sess.Values[sessionUserKey] = userID
	if err := sess.Save(r, rw); err != nil {
		log.Printf("[ERROR] Failed to save session: %v", err)
		w.renderError(rw, r, http.StatusInternalServerError, "Could not finish the login")
		return
	}
	http.Redirect(rw, r, "/", http.StatusFound)
}

func (w *Web) logout(rw http.ResponseWriter, r *http.Request) {
	if err := w.api.Logout(currentUser(r.Context())); err != nil {
		log.Printf("[ERROR] %v", err)
	}
	sess := w.session(r)
	delete(sess.Values, sessionUserKey)
	if err := sess.Save(r, rw); err != nil {
		log.Printf("[ERROR] Failed to save session: %v", err)
	}
	http.Redirect(rw, r, "/", http.StatusFound)
}

func (w *Web) playlists(rw http.ResponseWriter, r *http.Request, name string) {
	pls, err := w.api.Playlists(r.Context(), currentUser(r.Context()))
	if err != nil {
		w.fail(rw, r, err)
		return
	}
	w.render(rw, http.StatusOK, name, playlistsPage{page: w.newPage(r), Playlists: pls})
}

func (w *Web) home(rw http.ResponseWriter, r *http.Request) {
	w.playlists(rw, r, "home.html")
}

func (w *Web) playlistMetrics(rw http.ResponseWriter, r *http.Request) {
	w.playlists(rw, r, "metrics.html")
}

func (w *Web) analyze(rw http.ResponseWriter, r *http.Request, withGenres bool) {
	ctx := r.Context()
	userID, id := currentUser(ctx), mux.Vars(r)["playlist_id"]
	rec, err := w.api.Tracks(ctx, userID, id, false)
	if err != nil {
		w.fail(rw, r, err)
		return
	}
	result, err := w.api.Analyze(ctx, userID, id, withGenres)
	if err != nil {
		w.fail(rw, r, err)
		return
	}
	charts := []analyzer.Chart{result.Artists, result.Albums}
	if withGenres {
		charts = []analyzer.Chart{result.Genres}
	}
	w.render(rw, http.StatusOK, "analysis.html", analysisPage{
		page:       w.newPage(r),
		PlaylistID: id,
		Name:       rec.Name,
		Result:     result,
		Charts:     charts,
	})
}

func (w *Web) analyzeArtists(rw http.ResponseWriter, r *http.Request) {
	w.analyze(rw, r, false)
}

func (w *Web) analyzeGenre(rw http.ResponseWriter, r *http.Request) {
	w.analyze(rw, r, true)
}

func trackViews(tracks []tracklist.Track) []trackView {
	seen := make(map[string]bool, len(tracks))
	views := make([]trackView, 0, len(tracks))
	for i, t := range tracks {
		id := t.ID
		if id == "" || seen[id] {
			id = fmt.Sprintf("track_%d", i+1)
		}
		seen[id] = true
		views = append(views, trackView{ID: id, Name: t.Name, Artists: t.ArtistLine(), Album: t.Album})
	}
	return views
}

func (w *Web) playlist(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["playlist_id"]
	rec, err := w.api.Tracks(ctx, currentUser(ctx), id, r.URL.Query().Get("refresh") != "")
	if err != nil {
		w.fail(rw, r, err)
		return
	}
	w.render(rw, http.StatusOK, "playlist.html", playlistPage{
		page:       w.newPage(r),
		PlaylistID: id,
		Name:       rec.Name,
		NameID:     constants.PlaylistNameID,
		ListID:     constants.SongListID,
		Formats:    tracklist.Formats(),
		Tracks:     trackViews(rec.Tracks),
	})
}

func (w *Web) download(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	f, err := tracklist.ParseFormat(vars["format"])
	if err != nil || vars["format"] == "" {
		w.renderError(rw, r, http.StatusNotFound, "Unknown download format")
		return
	}

	var buf bytes.Buffer
	filename, err := w.api.Export(ctx, currentUser(ctx), vars["playlist_id"], f, &buf)
	if err != nil {
		w.fail(rw, r, err)
		return
	}
	rw.Header().Set("Content-Type", tracklist.ContentType(f))
	rw.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = buf.WriteTo(rw)
}

func (w *Web) siteLinks(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(w.SiteLinks()); err != nil {
		log.Printf("[ERROR] Failed to write site links: %v", err)
	}
}
