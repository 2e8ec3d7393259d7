package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/schollz/progressbar/v3"

	"github.com/oshokin/release-packager/internal/domain/release"
	"github.com/oshokin/release-packager/internal/logger"
)

// Publisher delivers a finished artifact to durable remote storage or copies
// it to a local destination directory.
type Publisher struct {
	httpClient *http.Client
	// showProgress draws a byte progress bar on stderr during uploads.
	showProgress bool
}

// NewPublisher returns a Publisher with the provided call timeout.
func NewPublisher(timeout time.Duration, showProgress bool) *Publisher {
	return &Publisher{
		httpClient:   &http.Client{Timeout: timeout},
		showProgress: showProgress,
	}
}

// Upload publishes the artifact and, if present, its checksum sibling to the
// object-storage URL. Partial uploads are not resumed: any failure is total
// and the caller retries the whole operation.
func (p *Publisher) Upload(ctx context.Context, artifactPath, storageURL string) error {
	if err := p.uploadFile(ctx, artifactPath, storageURL); err != nil {
		return err
	}

	checksumPath := artifactPath + release.ChecksumExtension
	if _, err := os.Stat(checksumPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("stat %s: %w", checksumPath, err)
	}

	return p.uploadFile(ctx, checksumPath, storageURL)
}

// uploadFile PUTs a single file to <storageURL>/<basename>.
func (p *Publisher) uploadFile(ctx context.Context, localPath, storageURL string) error {
	file, err := os.Open(filepath.Clean(localPath))
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}

	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	name := filepath.Base(localPath)

	targetURL, err := objectURL(storageURL, name)
	if err != nil {
		return err
	}

	var body io.Reader = file
	if p.showProgress {
		bar := progressbar.NewOptions64(info.Size(),
			progressbar.OptionSetDescription("uploading "+name),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(os.Stderr, "\n")
			}),
		)
		body = io.TeeReader(file, bar)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, targetURL, body)
	if err != nil {
		return err
	}

	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")

	response, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("put %s: %w: %s", targetURL, release.ErrUpload, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("put %s, %s: %w", targetURL, response.Status, release.ErrUpload)
	}

	logger.InfoKV(ctx, "Uploaded file", "name", name, "url", targetURL)

	return nil
}

// CopyLocal copies the artifact into destDir and returns the resulting path.
// The destination is never created implicitly: a missing local destination
// likely indicates caller error, unlike a missing remote bucket path.
func (p *Publisher) CopyLocal(artifactPath, destDir string) (string, error) {
	info, err := os.Stat(destDir)

	switch {
	case os.IsNotExist(err):
		return "", fmt.Errorf("%s: %w", destDir, release.ErrDestinationNotFound)
	case err != nil:
		return "", fmt.Errorf("stat %s: %w", destDir, err)
	case !info.IsDir():
		return "", fmt.Errorf("%s is not a directory: %w", destDir, release.ErrDestinationNotFound)
	}

	source, err := os.Open(filepath.Clean(artifactPath))
	if err != nil {
		return "", fmt.Errorf("open %s: %w", artifactPath, err)
	}

	defer func() {
		_ = source.Close()
	}()

	destPath := filepath.Join(destDir, filepath.Base(artifactPath))

	pending, err := renameio.TempFile("", destPath)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", destPath, release.ErrWrite, err)
	}

	defer func() {
		_ = pending.Cleanup()
	}()

	if _, err = io.Copy(pending, source); err != nil {
		return "", fmt.Errorf("%s: %w: %s", destPath, release.ErrWrite, err)
	}

	if err = pending.Chmod(release.DefaultFileMode); err != nil {
		return "", fmt.Errorf("%s: %w: %s", destPath, release.ErrWrite, err)
	}

	if err = pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", destPath, release.ErrWrite, err)
	}

	return destPath, nil
}

// objectURL appends the object name to the storage base URL.
func objectURL(storageURL, name string) (string, error) {
	parsed, err := url.Parse(storageURL)
	if err != nil {
		return "", fmt.Errorf("storage URL %s: %w", storageURL, err)
	}

	parsed.Path = path.Join(parsed.Path, name)

	return parsed.String(), nil
}
