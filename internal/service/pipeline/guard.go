package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/release-packager/internal/logger"
)

// MarkerFilename marks that a packaging run owns the build root right now.
// Concurrent runs against the same working tree would race on the staging
// directories and the produced artifact, so a second run refuses to start.
const MarkerFilename = "release-packager-marker.bin"

// packagerExecutable is the process name scanned for when deciding whether a
// marker belongs to a live run or a crashed one.
const packagerExecutable = "release-packager"

// IsPipelineRunningNow checks for a run marker in the build root and attempts
// recovery if the owning process is gone.
func IsPipelineRunningNow(ctx context.Context, buildRoot string) bool {
	markerPath := filepath.Join(buildRoot, MarkerFilename)

	_, err := os.Stat(markerPath)
	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	if err != nil {
		logger.Infof(ctx, "Unable to read run marker: %v", err)
		return false
	}

	if anotherPackagerAlive() {
		return true
	}

	logger.Info(ctx, "Found a run marker without a live run, removing")

	if err = os.Remove(markerPath); err != nil {
		return true
	}

	return false
}

// claimBuildRoot writes the run marker.
func claimBuildRoot(buildRoot string) error {
	marker, err := os.Create(filepath.Clean(filepath.Join(buildRoot, MarkerFilename)))
	if err != nil {
		return err
	}

	return marker.Close()
}

// releaseBuildRoot removes the run marker, best effort.
func releaseBuildRoot(ctx context.Context, buildRoot string) {
	markerPath := filepath.Join(buildRoot, MarkerFilename)
	if _, err := os.Stat(markerPath); err == nil {
		if err = os.Remove(markerPath); err != nil {
			logger.WarnKV(ctx, "Unable to remove run marker", "path", markerPath, "error", err)
		}
	}
}

// anotherPackagerAlive scans the process table for a second packager process.
func anotherPackagerAlive() bool {
	processes, err := ps.Processes()
	if err != nil {
		return false
	}

	wanted := packagerExecutable
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		wanted += ".exe"
	}

	thisProcessID := os.Getpid()

	for _, process := range processes {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() == wanted {
			return true
		}
	}

	return false
}
