// Package pipeline orchestrates a release-packaging run.
//
// It sequences asset build, backend packaging, the file/image mode branch,
// artifact naming, checksum generation and publishing. Stages run strictly
// one after another; the first failure terminates the run and is logged once
// at the top, with no retries at any level. The image staging directory is
// the only resource cleaned up on failure paths; other partial outputs stay
// on disk for inspection.
package pipeline
