// Package config defines packaging settings used by the release pipeline and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type holds the component name, the release index host, the
// object-storage upload URL and the upstream components bundled into images.
package config
