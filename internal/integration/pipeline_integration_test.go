package integration

import (
	"context"
	"crypto/sha256"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-packager/internal/config"
	"github.com/oshokin/release-packager/internal/domain/release"
	"github.com/oshokin/release-packager/internal/service/pipeline"
)

// installTools places stub git/npm/sbt executables on PATH so the pipeline
// runs its real subprocess runner without the real toolchain.
func installTools(t *testing.T, dir, component string) {
	t.Helper()

	binDir := filepath.Join(dir, "stub-bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))

	scripts := map[string]string{
		"git": "#!/bin/sh\necho abc123\n",
		"npm": "#!/bin/sh\nexit 0\n",
		"sbt": "#!/bin/sh\n" +
			"if [ \"$1\" = \"universal:packageZipTarball\" ]; then\n" +
			"  mkdir -p target/universal\n" +
			"  printf archive-bytes > target/universal/" + component + "-1.0-SNAPSHOT.tgz\n" +
			"fi\n" +
			"exit 0\n",
	}

	for name, body := range scripts {
		require.NoError(t, os.WriteFile(filepath.Join(binDir, name), []byte(body), 0o755))
	}

	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// TestPipeline_FileRelease_EndToEnd drives a full file-mode publish run:
// stub tools, real runner, real checksum, real HTTP upload.
func TestPipeline_FileRelease_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	prev, _ := os.Getwd() //nolint:errcheck // Test code needs simple os.Getwd for directory change.

	require.NoError(t, os.Chdir(dir))

	t.Cleanup(func() {
		os.Chdir(prev) //nolint:errcheck // Best-effort restore of working directory.
	})

	installTools(t, dir, "webconsole")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ui"), 0o755))

	var (
		mu       sync.Mutex
		received = make(map[string][]byte)
	)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		mu.Lock()
		received[r.URL.Path] = body
		mu.Unlock()

		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := &config.Config{
		Component:  "webconsole",
		StorageURL: ts.URL + "/releases/webconsole",
	}
	require.NoError(t, config.Save(config.DefaultConfigFilename, cfg))

	options := &pipeline.Options{
		ReleaseType: "file",
		Publish:     true,
	}

	require.NoError(t, pipeline.Run(context.Background(), options))

	// The named release and its checksum exist locally.
	releasePath := filepath.Join(dir, "webconsole-abc123.tgz")

	contents, err := os.ReadFile(releasePath)
	require.NoError(t, err)
	require.Equal(t, []byte("archive-bytes"), contents)

	checksumContents, err := os.ReadFile(releasePath + release.ChecksumExtension)
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("archive-bytes"))
	require.Equal(t,
		release.FormatChecksum(digest[:], "webconsole-abc123.tgz"),
		string(checksumContents))

	// Both files were uploaded.
	require.Equal(t, contents, received["/releases/webconsole/webconsole-abc123.tgz"])
	require.Equal(t, checksumContents, received["/releases/webconsole/webconsole-abc123.tgz.sha256"])

	// The run marker is gone.
	_, err = os.Stat(filepath.Join(dir, pipeline.MarkerFilename))
	require.True(t, os.IsNotExist(err))
}

// TestPipeline_ImageRelease_EndToEnd drives a local image build: latest
// versions resolved over HTTP, archives downloaded and verified into the
// staging directory, staging removed afterwards.
func TestPipeline_ImageRelease_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	prev, _ := os.Getwd() //nolint:errcheck // Test code needs simple os.Getwd for directory change.

	require.NoError(t, os.Chdir(dir))

	t.Cleanup(func() {
		os.Chdir(prev) //nolint:errcheck // Best-effort restore of working directory.
	})

	installTools(t, dir, "webconsole")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ui"), 0o755))

	// Serve one published release per upstream component.
	mux := http.NewServeMux()

	for _, component := range []string{"devops", "platform"} {
		archive := []byte(component + "-archive")
		digest := sha256.Sum256(archive)
		fileName := component + "-v1" + release.ArchiveExtension
		base := "/releases/" + component

		mux.HandleFunc(base+"/latest", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("v1\n"))
		})
		mux.HandleFunc(base+"/"+fileName, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(archive)
		})
		mux.HandleFunc(base+"/"+fileName+release.ChecksumExtension,
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(release.FormatChecksum(digest[:], fileName)))
			})
	}

	ts := httptest.NewServer(mux)
	defer ts.Close()

	cfg := &config.Config{
		Component:          "webconsole",
		IndexHost:          ts.URL,
		UpstreamComponents: []string{"devops", "platform"},
	}
	require.NoError(t, config.Save(config.DefaultConfigFilename, cfg))

	options := &pipeline.Options{
		ReleaseType: "docker",
	}

	require.NoError(t, pipeline.Run(context.Background(), options))

	// Staging directory was removed after the image build.
	_, err := os.Stat(filepath.Join(dir, "target", "docker", "stage", "packages"))
	require.True(t, os.IsNotExist(err))
}
