// Package server runs the alarm-server process.
//
// Run loads settings, guards the store with a lock file, builds the engine
// with its store, notifier and metrics, and serves AlarmService over gRPC
// until the context is canceled.
package server
