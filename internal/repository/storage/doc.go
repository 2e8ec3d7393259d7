// Package storage publishes finished release artifacts.
//
// Remote publishing is an object-storage-style HTTP PUT of the artifact bytes
// and its companion checksum file. Local publishing is an atomic copy into an
// existing destination directory.
package storage
