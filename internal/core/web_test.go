package core

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesh254/tracklist/internal/scraper"
)

type webHarness struct {
	srv    *httptest.Server
	client *http.Client
}

func newWebHarness(t *testing.T) *webHarness {
	t.Helper()
	w, err := NewWeb(newTestAPI(t), testSettings("http://localhost:8080"))
	require.NoError(t, err)
	srv := httptest.NewServer(w.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &webHarness{srv: srv, client: client}
}

func (h *webHarness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Get(h.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// startAuth begins the login flow and returns the state sent to Spotify.
func (h *webHarness) startAuth(t *testing.T) string {
	t.Helper()
	resp, _ := h.get(t, "/spotify_authorize")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func (h *webHarness) login(t *testing.T) {
	t.Helper()
	state := h.startAuth(t)
	resp, _ := h.get(t, "/redirect_after_auth?code=good&state="+url.QueryEscape(state))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func TestProtectedRoutesRedirectToAuthorize(t *testing.T) {
	h := newWebHarness(t)
	for _, path := range []string{"/", "/logout", "/playlist_metrics", "/playlist/pl1", "/analyze_playlist/artists/pl1", "/playlist/pl1/download.txt"} {
		resp, _ := h.get(t, path)
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/spotify_authorize", resp.Header.Get("Location"), path)
	}
}

func TestLoginFlow(t *testing.T) {
	h := newWebHarness(t)
	h.login(t)

	resp, body := h.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "user-1")
	assert.Contains(t, body, "Road Trip")
	assert.Contains(t, body, "/analyze_playlist/genre/pl1")

	resp, _ = h.get(t, "/spotify_authorize")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestRedirectAfterAuthRejectsBadState(t *testing.T) {
	h := newWebHarness(t)
	h.startAuth(t)

	resp, _ := h.get(t, "/redirect_after_auth?code=good&state=forged")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.get(t, "/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestRedirectAfterAuthHandlesDenial(t *testing.T) {
	h := newWebHarness(t)
	state := h.startAuth(t)

	resp, body := h.get(t, "/redirect_after_auth?error=access_denied&state="+state)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "access_denied")
}

func TestRedirectAfterAuthBadCode(t *testing.T) {
	h := newWebHarness(t)
	state := h.startAuth(t)

	resp, _ := h.get(t, "/redirect_after_auth?code=bad&state="+state)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPlaylistMetricsAndAnalysis(t *testing.T) {
	h := newWebHarness(t)
	h.login(t)

	resp, body := h.get(t, "/playlist_metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "long drives")
	assert.Contains(t, body, "Analyze Artists in Playlist")

	resp, body = h.get(t, "/analyze_playlist/artists/pl1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Tracks by Artist")
	assert.Contains(t, body, "Tracks by Album")
	assert.Contains(t, body, "66.7%")

	resp, body = h.get(t, "/analyze_playlist/genre/pl1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Tracks by Genre")
	assert.Contains(t, body, "rock")
	assert.Contains(t, body, "jazz")

	resp, _ = h.get(t, "/analyze_playlist/artists/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	h := newWebHarness(t)
	h.login(t)

	for _, path := range []string{"/playlist/unavailable", "/analyze_playlist/artists/unavailable", "/playlist/unavailable/download.csv"} {
		resp, body := h.get(t, path)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode, path)
		assert.Contains(t, body, "Spotify could not answer the request", path)
	}
}

func TestPlaylistPageCanBeScraped(t *testing.T) {
	h := newWebHarness(t)
	h.login(t)

	resp, body := h.get(t, "/playlist/pl1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="playlist_name"`)
	assert.Contains(t, body, `id="song_list_display"`)
	assert.Contains(t, body, "/playlist/pl1/download.csv")

	s := scraper.New(h.srv.URL+"/playlist/pl1", scraper.DefaultConfig())
	require.NoError(t, s.ParseHTML(strings.NewReader(body)))
	l, err := s.Listing()
	require.NoError(t, err)
	assert.Equal(t, "Road Trip", l.Name)
	assert.Equal(t, "One By Alpha - LP\nTwo By Alpha, Guest - LP\nThree By Bravo\n", l.Text())
}

func TestDownload(t *testing.T) {
	h := newWebHarness(t)
	h.login(t)

	resp, body := h.get(t, "/playlist/pl1/download.txt")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="Road_Trip.txt"`, resp.Header.Get("Content-Disposition"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Equal(t, "One By Alpha - LP\nTwo By Alpha, Guest - LP\nThree By Bravo\n", body)

	resp, body = h.get(t, "/playlist/pl1/download.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tracks map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &tracks))
	assert.Equal(t, "Alpha, Guest", tracks["t2"]["artists"])

	resp, _ = h.get(t, "/playlist/pl1/download.exe")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	h := newWebHarness(t)
	h.login(t)

	resp, _ := h.get(t, "/logout")
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp, _ = h.get(t, "/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/spotify_authorize", resp.Header.Get("Location"))
}

func TestSiteLinks(t *testing.T) {
	h := newWebHarness(t)

	resp, body := h.get(t, "/get-site-links")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var links []string
	require.NoError(t, json.Unmarshal([]byte(body), &links))
	assert.Contains(t, links, "http://localhost:8080/")
	assert.Contains(t, links, "http://localhost:8080/spotify_authorize")
	for _, link := range links {
		assert.NotContains(t, link, "{", link)
	}
	assert.NotContains(t, links, "http://localhost:8080/playlist/{playlist_id}")
	assert.IsIncreasing(t, links)
}

func TestPrintLinks(t *testing.T) {
	w, err := NewWeb(newTestAPI(t), testSettings("http://localhost:9000"))
	require.NoError(t, err)
	var buf bytes.Buffer
	w.PrintLinks(&buf)
	assert.Contains(t, buf.String(), "Existing URLs:")
	assert.Contains(t, buf.String(), "http://localhost:9000/get-site-links")
}
