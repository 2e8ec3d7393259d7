package index

import (
	"context"
	"crypto"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/schollz/progressbar/v3"

	"github.com/oshokin/release-packager/internal/domain/release"
	"github.com/oshokin/release-packager/internal/logger"

	// Ensure SHA256 is available for download verification.
	_ "crypto/sha256"
)

// checksumFunction verifies downloaded release archives.
const checksumFunction crypto.Hash = crypto.SHA256

// Client queries a remote release index for published component builds.
// Both operations are read-only with respect to the index; no retry is
// performed internally, callers decide whether to retry or abort.
type Client struct {
	httpClient *http.Client
	// showProgress draws a byte progress bar on stderr during downloads.
	showProgress bool
}

// NewClient returns a release index client with the provided call timeout.
func NewClient(timeout time.Duration, showProgress bool) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		showProgress: showProgress,
	}
}

// Latest returns the most recent published version of the component.
func (c *Client) Latest(ctx context.Context, host, component string) (string, error) {
	body, err := c.get(ctx, host, path.Join("releases", component, "latest"))
	if err != nil {
		return "", fmt.Errorf("latest %s: %w", component, err)
	}

	defer func() {
		_ = body.Close()
	}()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("latest %s: %w: %s", component, release.ErrNetwork, err)
	}

	version := strings.TrimSpace(string(data))
	if version == "" {
		return "", fmt.Errorf("latest %s: %w", component, release.ErrNotFound)
	}

	return version, nil
}

// Download fetches the named release archive into destDir, creating the
// directory if absent, and verifies it against the checksum published next to
// it. Returns the local path of the downloaded archive.
func (c *Client) Download(ctx context.Context, host, component, version, destDir string) (string, error) {
	if strings.TrimSpace(version) == "" {
		return "", fmt.Errorf("download %s: %w", component, release.ErrNotFound)
	}

	// The index owns its version scheme; compose the published name verbatim
	// instead of constraining versions to revision-id rules.
	fileName := component + "-" + version + release.ArchiveExtension

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", destDir, err)
	}

	remotePath := path.Join("releases", component, fileName)

	checksum, err := c.fetchChecksum(ctx, host, remotePath+release.ChecksumExtension)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", fileName, err)
	}

	stagedPath, err := c.fetchArchive(ctx, host, remotePath, destDir, fileName)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", fileName, err)
	}

	defer func() {
		_ = os.Remove(stagedPath)
	}()

	targetPath := filepath.Join(destDir, fileName)
	if err = applyVerified(stagedPath, targetPath, checksum); err != nil {
		return "", fmt.Errorf("verify %s: %w", fileName, err)
	}

	logger.InfoKV(ctx, "Downloaded release", "component", component, "version", version, "path", targetPath)

	return targetPath, nil
}

// fetchChecksum retrieves and parses the published checksum for an archive.
func (c *Client) fetchChecksum(ctx context.Context, host, remotePath string) ([]byte, error) {
	body, err := c.get(ctx, host, remotePath)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = body.Close()
	}()

	contents, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", release.ErrNetwork, err)
	}

	return release.ParseChecksum(contents)
}

// fetchArchive streams the archive into a staging file inside destDir.
func (c *Client) fetchArchive(ctx context.Context, host, remotePath, destDir, fileName string) (string, error) {
	body, size, err := c.getWithSize(ctx, host, remotePath)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = body.Close()
	}()

	staged, err := os.CreateTemp(destDir, fileName+".download-")
	if err != nil {
		return "", fmt.Errorf("stage download: %w", err)
	}

	var sink io.Writer = staged
	if c.showProgress {
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetDescription("downloading "+fileName),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(os.Stderr, "\n")
			}),
		)
		sink = io.MultiWriter(staged, bar)
	}

	if _, err = io.Copy(sink, body); err != nil {
		_ = staged.Close()
		_ = os.Remove(staged.Name())

		return "", fmt.Errorf("%w: %s", release.ErrNetwork, err)
	}

	if err = staged.Close(); err != nil {
		_ = os.Remove(staged.Name())

		return "", fmt.Errorf("stage download: %w", err)
	}

	return staged.Name(), nil
}

// applyVerified moves the staged file into place, validating its checksum.
func applyVerified(stagedPath, targetPath string, checksum []byte) error {
	staged, err := os.Open(filepath.Clean(stagedPath))
	if err != nil {
		return err
	}

	defer func() {
		_ = staged.Close()
	}()

	// go-update requires the target to exist before applying.
	if _, err = os.Stat(targetPath); err != nil {
		if !os.IsNotExist(err) {
			return err
		}

		var empty *os.File

		if empty, err = os.Create(filepath.Clean(targetPath)); err != nil {
			return err
		}

		if err = empty.Close(); err != nil {
			return err
		}
	}

	options := goupdate.Options{
		TargetPath: targetPath,
		TargetMode: release.DefaultFileMode,
		Checksum:   checksum,
		Hash:       checksumFunction,
	}

	if err = goupdate.Apply(staged, options); err != nil {
		return err
	}

	// Apply keeps a backup of the previous target; a fresh download has no use for it.
	oldPath := targetPath + ".old"
	if _, err = os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	return nil
}

// get issues a GET for a path on the index host and returns the body on 200.
func (c *Client) get(ctx context.Context, host, remotePath string) (io.ReadCloser, error) {
	body, _, err := c.getWithSize(ctx, host, remotePath)
	return body, err
}

func (c *Client) getWithSize(ctx context.Context, host, remotePath string) (io.ReadCloser, int64, error) {
	requestURL, err := buildURL(host, remotePath)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return nil, 0, err
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", release.ErrNetwork, err)
	}

	switch {
	case response.StatusCode == http.StatusOK:
		return response.Body, response.ContentLength, nil
	case response.StatusCode == http.StatusNotFound:
		_ = response.Body.Close()

		return nil, 0, fmt.Errorf("%s: %w", requestURL, release.ErrNotFound)
	default:
		_ = response.Body.Close()

		return nil, 0, fmt.Errorf("%s, %s: %w", requestURL, response.Status, release.ErrNetwork)
	}
}

// buildURL composes the request URL, defaulting to https when the host
// carries no scheme.
func buildURL(host, remotePath string) (string, error) {
	base := host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("index host %s: %w", host, err)
	}

	// path.Join normalizes duplicate slashes when composing the URL path.
	parsed.Path = path.Join(parsed.Path, remotePath)

	return parsed.String(), nil
}
