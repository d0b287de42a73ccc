// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// Thinplay is the canonical application identifier used for filesystem paths and CLI branding.
	Thinplay = "thinplay"

	// Version is the current application semantic version string.
	Version = "0.1.0"

	// UserAgent is the HTTP User-Agent string used for requests to the media server.
	UserAgent = Thinplay + "/" + Version
)

// Build metadata, injected at link time via -ldflags.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
