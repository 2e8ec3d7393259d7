package release

import "errors"

// Failure kinds surfaced by the packaging pipeline. The orchestrator matches
// on these only to decide logging detail, never to branch pipeline logic.
var (
	// ErrBuild indicates an external build or packaging tool failed.
	ErrBuild = errors.New("build tool failed")
	// ErrDownload indicates a remote release lookup or fetch failed.
	ErrDownload = errors.New("release download failed")
	// ErrUpload indicates publishing an artifact to remote storage failed.
	ErrUpload = errors.New("release upload failed")
	// ErrWrite indicates a local file could not be written.
	ErrWrite = errors.New("file write failed")
	// ErrInvalidRevision indicates the revision id is empty or unsafe for a file name.
	ErrInvalidRevision = errors.New("invalid revision id")
	// ErrDestinationNotFound indicates the explicit local destination does not exist.
	ErrDestinationNotFound = errors.New("destination folder does not exist")
	// ErrNotFound indicates the remote index has no such release.
	ErrNotFound = errors.New("release not found")
	// ErrNetwork indicates a transport failure talking to a remote host.
	ErrNetwork = errors.New("network failure")
	// ErrInvalidChecksum indicates a checksum file could not be parsed.
	ErrInvalidChecksum = errors.New("invalid checksum file")
)
