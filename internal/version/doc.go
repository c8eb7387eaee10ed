// Package version exposes build metadata for alarm-server and alarm-client.
//
// Version, Commit and BuildTime are injected with ldflags; Get falls back to
// the VCS stamp from runtime/debug for local builds.
package version
