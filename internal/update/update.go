// Package update replaces the running executable with the latest GitHub
// release. The new version takes effect on next launch.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	releaseURL = "https://api.github.com/repos/alex-vit/restlight/releases/latest"
	assetName  = "restlight.exe"
)

type ghRelease struct {
	TagName string    `json:"tag_name"`
	Assets  []ghAsset `json:"assets"`
}

type ghAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Updater checks one release feed against the running version.
type Updater struct {
	Version    string
	ReleaseURL string
	// Exe is the binary to replace. Empty means os.Executable.
	Exe    string
	Client *http.Client

	log zerolog.Logger
}

// New returns an updater for the public release feed.
func New(version string) *Updater {
	return &Updater{
		Version:    version,
		ReleaseURL: releaseURL,
		Client:     &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("component", "update").Logger(),
	}
}

// Run checks, downloads and applies in one go. Failures are logged.
func (u *Updater) Run(ctx context.Context) {
	latest, url, err := u.Check(ctx)
	if err != nil {
		u.log.Warn().Err(err).Msg("update check failed")
		return
	}
	if url == "" {
		u.log.Info().Str("current", u.Version).Msg("no update available")
		return
	}
	u.log.Info().Str("latest", latest).Msg("update available")
	tmp, err := u.Download(ctx, url)
	if err != nil {
		u.log.Warn().Err(err).Msg("update download failed")
		return
	}
	if err := u.Apply(tmp); err != nil {
		u.log.Warn().Err(err).Msg("update apply failed")
	}
}

func (u *Updater) exe() (string, error) {
	if u.Exe != "" {
		return u.Exe, nil
	}
	return os.Executable()
}

// CleanOld removes the .old binary a previous update left behind.
func (u *Updater) CleanOld() {
	exe, err := u.exe()
	if err != nil {
		return
	}
	old := exe + ".old"
	if err := os.Remove(old); err == nil {
		u.log.Info().Str("path", old).Msg("removed old binary")
	}
}

// Check returns the latest version and its download URL when it is newer
// than the running one; url is empty when up to date.
func (u *Updater) Check(ctx context.Context) (latest, url string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.ReleaseURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := u.Client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}

	var rel ghRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return "", "", fmt.Errorf("decode release: %w", err)
	}

	latest = strings.TrimPrefix(rel.TagName, "v")
	if !IsNewer(latest, u.Version) {
		return latest, "", nil
	}
	for _, a := range rel.Assets {
		if strings.EqualFold(a.Name, assetName) {
			return latest, a.BrowserDownloadURL, nil
		}
	}
	return "", "", fmt.Errorf("no %s asset in release %s", assetName, rel.TagName)
}

// Download saves url to a .tmp file next to the executable.
func (u *Updater) Download(ctx context.Context, url string) (string, error) {
	exe, err := u.exe()
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := u.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned %d", resp.StatusCode)
	}

	tmp := exe + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	u.log.Info().Str("path", tmp).Msg("downloaded update")
	return tmp, nil
}

// Apply swaps tmp in for the executable. Windows lets a running exe be
// renamed but not overwritten.
func (u *Updater) Apply(tmp string) error {
	exe, err := u.exe()
	if err != nil {
		return err
	}
	old := exe + ".old"
	if err := os.Rename(exe, old); err != nil {
		return fmt.Errorf("rename current to .old: %w", err)
	}
	if err := os.Rename(tmp, exe); err != nil {
		_ = os.Rename(old, exe)
		return fmt.Errorf("rename .tmp to exe: %w", err)
	}
	u.log.Info().Msg("applied update, new version ready on next launch")
	return nil
}

// IsNewer reports whether latest is a higher "X.Y.Z" than current. Dev
// builds never update.
func IsNewer(latest, current string) bool {
	if current == "" || current == "dev" {
		return false
	}
	lp, cp := parseSemver(latest), parseSemver(current)
	if lp == nil || cp == nil {
		return false
	}
	for i := range 3 {
		if lp[i] != cp[i] {
			return lp[i] > cp[i]
		}
	}
	return false
}

func parseSemver(s string) []int {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return nil
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		nums[i] = n
	}
	return nums
}
