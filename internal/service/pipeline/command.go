package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/oshokin/release-packager/internal/command"
	"github.com/oshokin/release-packager/internal/config"
	"github.com/oshokin/release-packager/internal/domain/release"
	"github.com/oshokin/release-packager/internal/logger"
	"github.com/oshokin/release-packager/internal/repository/index"
	"github.com/oshokin/release-packager/internal/repository/storage"
)

// Options contains inputs for the packaging entry point.
type Options struct {
	// ConfigPath is an optional path to packaging settings (defaults to settings YAML).
	ConfigPath string
	// ReleaseType selects the release mode: file or docker.
	ReleaseType string
	// Publish uploads the release to remote storage or pushes the image to the registry.
	Publish bool
	// Destination is a local folder the release file is copied to when not publishing.
	Destination string
}

var (
	errPipelineRunning      = errors.New("another packaging run is active in this build root")
	errStorageURLRequired   = errors.New("storage URL must be configured to publish a file release")
	errIndexHostRequired    = errors.New("index host must be configured for image releases")
	errNoUpstreamComponents = errors.New("at least one upstream component must be configured for image releases")
)

// releaseIndex is the subset of the release index client the pipeline uses.
type releaseIndex interface {
	Latest(ctx context.Context, host, component string) (string, error)
	Download(ctx context.Context, host, component, version, destDir string) (string, error)
}

// publisher is the subset of the storage publisher the pipeline uses.
type publisher interface {
	Upload(ctx context.Context, artifactPath, storageURL string) error
	CopyLocal(artifactPath, destDir string) (string, error)
}

// pipeline sequences one packaging run. It is unexported: callers use Run,
// which encapsulates setup, the concurrent-run guard and cleanup.
type pipeline struct {
	cfg         *config.Config
	mode        release.Mode
	publish     bool
	destination string
	// buildRoot is the working root owning asset, output and staging directories.
	buildRoot string
	runner    command.Runner
	index     releaseIndex
	publisher publisher
	// revision is captured once at run start and immutable afterwards.
	revision string
	// artifact is the produced release file; at most one per run.
	artifact *release.Artifact
}

// Run executes the packaging workflow. Every stage failure propagates here,
// is logged once and terminates the run; no stage is retried at any level.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "release-packager")

	p, err := newPipeline(ctx, opts)
	if err != nil {
		return fmt.Errorf("initialize pipeline: %w", err)
	}

	defer p.cleanup(ctx)

	if err = p.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Packaging run failed", "error", err)
		return err
	}

	logger.InfoKV(ctx, "Packaging completed successfully", "mode", p.mode)

	return nil
}

// newPipeline validates the run configuration and claims the build root.
func newPipeline(ctx context.Context, opts *Options) (*pipeline, error) {
	mode, err := release.ParseMode(opts.ReleaseType)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if err = validateForMode(cfg, mode, opts.Publish); err != nil {
		return nil, err
	}

	buildRoot, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	if IsPipelineRunningNow(ctx, buildRoot) {
		return nil, errPipelineRunning
	}

	if err = claimBuildRoot(buildRoot); err != nil {
		return nil, err
	}

	return &pipeline{
		cfg:         cfg,
		mode:        mode,
		publish:     opts.Publish,
		destination: opts.Destination,
		buildRoot:   buildRoot,
		runner:      command.NewExecRunner(),
		index:       index.NewClient(cfg.Timeout, true),
		publisher:   storage.NewPublisher(cfg.Timeout, true),
	}, nil
}

// validateForMode checks settings the selected mode depends on before any
// side-effecting stage runs.
func validateForMode(cfg *config.Config, mode release.Mode, publish bool) error {
	if mode == release.ModeImage {
		if cfg.IndexHost == "" {
			return errIndexHostRequired
		}

		if len(cfg.UpstreamComponents) == 0 {
			return errNoUpstreamComponents
		}

		return nil
	}

	if publish && cfg.StorageURL == "" {
		return errStorageURLRequired
	}

	return nil
}

// run drives the stages in order. Each stage fully completes or fails before
// the next begins; partial local artifacts of a failed run are left in place
// for post-mortem inspection.
func (p *pipeline) run(ctx context.Context) error {
	if err := p.resolveRevision(ctx); err != nil {
		return err
	}

	if err := p.buildAssets(ctx); err != nil {
		return err
	}

	if err := p.cleanBackend(ctx); err != nil {
		return err
	}

	if p.mode == release.ModeImage {
		return p.assembleImage(ctx)
	}

	return p.assembleFile(ctx)
}

// resolveRevision captures the source snapshot id for the run.
func (p *pipeline) resolveRevision(ctx context.Context) error {
	output, err := p.runner.Run(ctx, p.buildRoot, "git", "rev-parse", "--short", "HEAD")
	if err != nil {
		return fmt.Errorf("resolve revision: %w: %s", release.ErrBuild, err)
	}

	revision := strings.TrimSpace(string(output))
	if err = release.ValidateRevision(revision); err != nil {
		return err
	}

	p.revision = revision
	logger.InfoKV(ctx, "Resolved source revision", "revision", revision)

	return nil
}

// buildAssets compiles the front-end bundle in the asset directory.
func (p *pipeline) buildAssets(ctx context.Context) error {
	logger.Info(ctx, "Building front-end assets")

	assetDir := filepath.Join(p.buildRoot, p.cfg.AssetDir)

	// A clean dependency tree, same as a fresh checkout.
	if err := os.RemoveAll(filepath.Join(assetDir, "node_modules")); err != nil {
		return fmt.Errorf("clean node_modules: %w", err)
	}

	if err := p.runTool(ctx, assetDir, "npm", "install"); err != nil {
		return err
	}

	return p.runTool(ctx, assetDir, "npm", "run", "build")
}

// cleanBackend resets the backend build state before packaging.
func (p *pipeline) cleanBackend(ctx context.Context) error {
	logger.Info(ctx, "Cleaning backend build state")

	return p.runTool(ctx, p.buildRoot, "sbt", "clean")
}

// assembleImage bundles the latest upstream releases into a staging directory
// and builds the container image. The staging directory is removed on success
// and failure alike.
func (p *pipeline) assembleImage(ctx context.Context) (err error) {
	logger.InfoKV(ctx, "Resolving latest upstream releases", "components", p.cfg.UpstreamComponents)

	versions := make(map[string]string, len(p.cfg.UpstreamComponents))

	for _, component := range p.cfg.UpstreamComponents {
		var version string

		version, err = p.index.Latest(ctx, p.cfg.IndexHost, component)
		if err != nil {
			return fmt.Errorf("latest %s: %w: %s", component, release.ErrDownload, err)
		}

		versions[component] = version
	}

	stagingDir := filepath.Join(p.buildRoot, "target", "docker", "stage", "packages")
	if err = os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("create staging: %w", err)
	}

	defer func() {
		if removeErr := os.RemoveAll(stagingDir); removeErr != nil {
			logger.WarnKV(ctx, "Unable to remove staging directory", "path", stagingDir, "error", removeErr)
		} else {
			logger.InfoKV(ctx, "Removed staging directory", "path", stagingDir)
		}
	}()

	for _, component := range p.cfg.UpstreamComponents {
		if _, err = p.index.Download(ctx, p.cfg.IndexHost, component, versions[component], stagingDir); err != nil {
			return fmt.Errorf("download %s: %w: %s", component, release.ErrDownload, err)
		}
	}

	target := "docker:publishLocal"
	if p.publish {
		target = "docker:publish"
	}

	logger.InfoKV(ctx, "Building container image", "target", target)

	return p.runTool(ctx, p.buildRoot, "sbt", target)
}

// assembleFile packages the archive, renames it to its release name and
// publishes or copies it according to the run configuration.
func (p *pipeline) assembleFile(ctx context.Context) error {
	logger.Info(ctx, "Packaging release archive")

	if err := p.runTool(ctx, p.buildRoot, "sbt", "universal:packageZipTarball"); err != nil {
		return err
	}

	packagedPath := filepath.Join(
		p.buildRoot, "target", "universal",
		p.cfg.Component+"-1.0-SNAPSHOT"+release.ArchiveExtension,
	)
	if _, err := os.Stat(packagedPath); err != nil {
		// Packaging exited zero but produced nothing; blame the build, not the copy.
		return fmt.Errorf("packaged artifact %s: %w: %s", packagedPath, release.ErrBuild, err)
	}

	fileName, err := release.FileName(p.cfg.Component, p.revision)
	if err != nil {
		return err
	}

	releasePath := filepath.Join(p.buildRoot, fileName)

	logger.InfoKV(ctx, "Renaming packaged artifact", "from", packagedPath, "to", releasePath)

	if err = copyFile(packagedPath, releasePath); err != nil {
		return err
	}

	p.artifact = &release.Artifact{
		Path:      releasePath,
		Component: p.cfg.Component,
		Revision:  p.revision,
		Mode:      p.mode,
	}

	switch {
	case p.publish:
		return p.publishRelease(ctx)
	case p.destination != "":
		return p.copyRelease(ctx)
	default:
		// A named artifact with no publish action is a valid terminal state.
		logger.InfoKV(ctx, "Release packaged", "path", releasePath)
		return nil
	}
}

// publishRelease generates the checksum and uploads artifact plus checksum.
func (p *pipeline) publishRelease(ctx context.Context) error {
	logger.InfoKV(ctx, "Publishing release", "url", p.cfg.StorageURL)

	checksumPath, err := release.WriteChecksum(p.artifact.Path)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Generated checksum", "path", checksumPath)

	return p.publisher.Upload(ctx, p.artifact.Path, p.cfg.StorageURL)
}

// copyRelease copies the artifact to the explicit local destination.
func (p *pipeline) copyRelease(ctx context.Context) error {
	destPath, err := p.publisher.CopyLocal(p.artifact.Path, p.destination)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Copied release", "path", destPath)

	return nil
}

// runTool invokes an external build tool; any failure is a build failure with
// the tool output preserved in the log.
func (p *pipeline) runTool(ctx context.Context, dir, name string, args ...string) error {
	logger.DebugKV(ctx, "Running tool", "name", name, "args", args, "dir", dir)

	output, err := p.runner.Run(ctx, dir, name, args...)
	if err != nil {
		if len(output) > 0 {
			logger.ErrorKV(ctx, "Tool output", "name", name, "output", string(output))
		}

		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), release.ErrBuild, err)
	}

	return nil
}

// cleanup releases the build root claim.
func (p *pipeline) cleanup(ctx context.Context) {
	releaseBuildRoot(ctx, p.buildRoot)
}

// copyFile copies src to dst atomically, replacing dst if present.
func copyFile(src, dst string) error {
	source, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	defer func() {
		_ = source.Close()
	}()

	pending, err := renameio.TempFile("", dst)
	if err != nil {
		return fmt.Errorf("%s: %w: %s", dst, release.ErrWrite, err)
	}

	defer func() {
		_ = pending.Cleanup()
	}()

	if _, err = io.Copy(pending, source); err != nil {
		return fmt.Errorf("%s: %w: %s", dst, release.ErrWrite, err)
	}

	if err = pending.Chmod(release.DefaultFileMode); err != nil {
		return fmt.Errorf("%s: %w: %s", dst, release.ErrWrite, err)
	}

	if err = pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("%s: %w: %s", dst, release.ErrWrite, err)
	}

	return nil
}
