// Package index is the HTTP client for the remote release index.
//
// The index serves per-component "latest version" metadata and versioned
// archive downloads. Downloads are verified against the checksum published
// next to each archive before being moved into place.
package index
