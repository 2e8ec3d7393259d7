package release

import (
	"fmt"
	"strings"
)

// Mode selects the kind of release artifact a pipeline run produces.
// It is fixed at pipeline start and immutable for the run's duration.
type Mode string

const (
	// ModeFile produces a versioned archive.
	ModeFile Mode = "file"
	// ModeImage produces a container image.
	ModeImage Mode = "docker"
)

const (
	// ArchiveExtension is the extension of packaged release archives.
	ArchiveExtension = ".tgz"

	// ChecksumExtension is the suffix of companion checksum files.
	ChecksumExtension = ".sha256"
)

// ParseMode converts the CLI release type to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeFile):
		return ModeFile, nil
	case string(ModeImage):
		return ModeImage, nil
	default:
		return "", fmt.Errorf("release type %q is not one of file, docker", s)
	}
}

// Artifact is the produced release file of a run.
type Artifact struct {
	// Path is the absolute or build-root-relative location of the file.
	Path string
	// Component is the logical name embedded into the file name.
	Component string
	// Revision identifies the source snapshot the artifact was built from.
	Revision string
	// Mode records how the artifact was produced.
	Mode Mode
}

// FileName derives the stable release file name for a component at a revision,
// of the form <component>-<revision>.tgz. Identical inputs always yield the
// identical name, so re-runs target the same artifact and checksum paths.
func FileName(component, revision string) (string, error) {
	if err := ValidateRevision(revision); err != nil {
		return "", err
	}

	return component + "-" + revision + ArchiveExtension, nil
}

// ValidateRevision rejects revision ids that are empty or unsafe in a file name.
func ValidateRevision(revision string) error {
	if revision == "" {
		return fmt.Errorf("empty: %w", ErrInvalidRevision)
	}

	for _, r := range revision {
		if !isFilenameSafe(r) {
			return fmt.Errorf("%q: %w", revision, ErrInvalidRevision)
		}
	}

	return nil
}

func isFilenameSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.' || r == '-' || r == '_':
		return true
	default:
		return false
	}
}
