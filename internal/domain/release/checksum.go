package release

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// DefaultFileMode is used when producing artifacts for distribution.
const DefaultFileMode os.FileMode = 0o644

// WriteChecksum computes the SHA-256 digest of the artifact and writes it to
// the sibling path <artifact>.sha256 in sha256sum format, replacing any
// pre-existing checksum file atomically. Re-running against an unchanged
// artifact produces a byte-identical file. Returns the checksum file path.
func WriteChecksum(artifactPath string) (string, error) {
	digest, err := FileChecksum(artifactPath)
	if err != nil {
		return "", err
	}

	checksumPath := artifactPath + ChecksumExtension
	contents := FormatChecksum(digest, filepath.Base(artifactPath))

	if err = renameio.WriteFile(checksumPath, []byte(contents), DefaultFileMode); err != nil {
		return "", fmt.Errorf("%s: %w: %s", checksumPath, ErrWrite, err)
	}

	return checksumPath, nil
}

// FileChecksum returns the SHA-256 digest of the file at path.
func FileChecksum(path string) ([]byte, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// FormatChecksum renders a digest in sha256sum format: "<hex>  <name>\n".
func FormatChecksum(digest []byte, name string) string {
	return hex.EncodeToString(digest) + "  " + name + "\n"
}

// ParseChecksum extracts the digest bytes from sha256sum-formatted contents.
func ParseChecksum(contents []byte) ([]byte, error) {
	fields := strings.Fields(string(contents))
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty checksum file: %w", ErrInvalidChecksum)
	}

	digest, err := hex.DecodeString(fields[0])
	if err != nil {
		return nil, fmt.Errorf("decode checksum: %w", err)
	}

	return digest, nil
}
