package update

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNewer(t *testing.T) {
	tests := []struct {
		latest, current string
		want            bool
	}{
		{"1.2.0", "1.1.0", true},
		{"1.1.1", "1.1.0", true},
		{"2.0.0", "1.9.9", true},
		{"1.10.0", "1.9.0", true},
		{"1.1.0", "1.1.0", false},
		{"1.0.0", "1.1.0", false},
		{"1.1.0", "2.0.0", false},
		{"1.1.0", "", false},
		{"1.1.0", "dev", false},
		{"bad", "1.0.0", false},
		{"1.0.0", "bad", false},
		{"1.0", "1.0.0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsNewer(tt.latest, tt.current), "IsNewer(%q, %q)", tt.latest, tt.current)
	}
}

func newTestUpdater(t *testing.T, version string, h http.HandlerFunc) *Updater {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	u := New(version)
	u.ReleaseURL = srv.URL + "/latest"
	u.Client = srv.Client()
	u.Exe = filepath.Join(t.TempDir(), "restlight.exe")
	require.NoError(t, os.WriteFile(u.Exe, []byte("old"), 0o755))
	return u
}

func releaseHandler(tag string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latest":
			fmt.Fprintf(w, `{"tag_name": %q, "assets": [{"name": "Restlight.exe", "browser_download_url": "http://%s/bin"}]}`, tag, r.Host)
		case "/bin":
			fmt.Fprint(w, "new")
		default:
			http.NotFound(w, r)
		}
	}
}

func TestCheck(t *testing.T) {
	u := newTestUpdater(t, "1.0.0", releaseHandler("v1.1.0"))
	latest, url, err := u.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", latest)
	assert.Contains(t, url, "/bin")

	u.Version = "1.1.0"
	_, url, err = u.Check(context.Background())
	require.NoError(t, err)
	assert.Empty(t, url, "up to date")
}

func TestCheckHTTPError(t *testing.T) {
	u := newTestUpdater(t, "1.0.0", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, _, err := u.Check(context.Background())
	assert.ErrorContains(t, err, "403")
}

func TestRunReplacesExecutable(t *testing.T) {
	u := newTestUpdater(t, "1.0.0", releaseHandler("v2.0.0"))
	u.Run(context.Background())

	got, err := os.ReadFile(u.Exe)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
	old, err := os.ReadFile(u.Exe + ".old")
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))

	u.CleanOld()
	_, err = os.Stat(u.Exe + ".old")
	assert.True(t, os.IsNotExist(err))
}

func TestApplyRollback(t *testing.T) {
	u := newTestUpdater(t, "1.0.0", releaseHandler("v2.0.0"))

	err := u.Apply(u.Exe + ".tmp") // never downloaded
	require.Error(t, err)
	got, err := os.ReadFile(u.Exe)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got), "original restored")
}
