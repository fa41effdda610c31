package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/LouYuanbo1/coursecrawler/internal/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pluginfile.php/", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("MoodleSession"); err != nil || c.Value != "abc" {
			http.Error(w, "login required", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	mux.HandleFunc("/file.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="week1:notes.zip"`)
		_, _ = w.Write([]byte("PK"))
	})
	mux.HandleFunc("/login/index.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>login</body></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newFetcher(fs afero.Fs) FileFetcher {
	cfg := config.Default()
	return InitCollyFetcher(cfg, fs)
}

func TestFetchWithCookies(t *testing.T) {
	srv := newTestServer(t)
	fs := afero.NewMemMapFs()
	fetcher := newFetcher(fs)

	cookies := []*http.Cookie{{Name: "MoodleSession", Value: "abc"}}
	path, err := fetcher.Fetch(context.Background(), srv.URL+"/pluginfile.php/12/mod_resource/content/1/Lecture%2001.pdf", cookies, "course/Week01")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("course/Week01", "Lecture 01.pdf"), path)

	body, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4", string(body))
}

func TestFetchContentDisposition(t *testing.T) {
	srv := newTestServer(t)
	fs := afero.NewMemMapFs()

	path, err := newFetcher(fs).Fetch(context.Background(), srv.URL+"/file.php?id=3", nil, "course/Section00")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("course/Section00", "week1_notes.zip"), path)
}

func TestFetchErrors(t *testing.T) {
	srv := newTestServer(t)
	fs := afero.NewMemMapFs()
	fetcher := newFetcher(fs)

	_, err := fetcher.Fetch(context.Background(), srv.URL+"/pluginfile.php/12/mod_resource/content/1/Lecture%2001.pdf", nil, "d")
	require.Error(t, err)

	_, err = fetcher.Fetch(context.Background(), srv.URL+"/login/index.php", nil, "d")
	require.ErrorIs(t, err, ErrUnexpectedPage)

	exists, err := afero.DirExists(fs, "d")
	require.NoError(t, err)
	require.False(t, exists)
}
