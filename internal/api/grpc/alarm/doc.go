// Package alarm implements the gRPC transport for the alarm engine.
//
// The alarmclock.v1.AlarmService descriptor is declared by hand and its
// messages travel through a JSON codec registered under the "json" content
// subtype. Server adapts an engine to the service and maps domain errors to
// status codes; NewAlarmServiceClient returns the matching client stub.
package alarm
