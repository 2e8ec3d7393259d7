// Package release holds the release-artifact domain: modes, deterministic
// artifact naming, checksum generation and the failure taxonomy shared by the
// packaging pipeline and its collaborators.
package release
