package release

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestWriteChecksum_Idempotent verifies byte-identical output for an unchanged artifact.
func TestWriteChecksum_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact := filepath.Join(dir, "app-abc123.tgz")
	require.NoError(t, os.WriteFile(artifact, []byte("archive-bytes"), DefaultFileMode))

	path, err := WriteChecksum(artifact)
	require.NoError(t, err)
	require.Equal(t, artifact+ChecksumExtension, path)

	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = WriteChecksum(artifact)
	require.NoError(t, err)

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// The recorded digest matches the artifact contents.
	digest := sha256.Sum256([]byte("archive-bytes"))
	parsed, err := ParseChecksum(first)
	require.NoError(t, err)
	require.Equal(t, digest[:], parsed)
}

// TestWriteChecksum_MissingArtifact fails when the target path does not exist.
func TestWriteChecksum_MissingArtifact(t *testing.T) {
	t.Parallel()

	_, err := WriteChecksum(filepath.Join(t.TempDir(), "no-such-artifact.tgz"))
	require.Error(t, err)
}

// TestParseChecksum rejects malformed checksum files.
func TestParseChecksum(t *testing.T) {
	t.Parallel()

	_, err := ParseChecksum(nil)
	require.Error(t, err)

	_, err = ParseChecksum([]byte("not-hex  file.tgz\n"))
	require.Error(t, err)
}
