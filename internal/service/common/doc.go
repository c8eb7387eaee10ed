// Package common holds helpers shared by the alarm client and the
// integration tests.
//
// Client wraps the AlarmService stub with per-call timeouts and converts
// wire messages back to domain alarms; DetectActor records who asked.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
