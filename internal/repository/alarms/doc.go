// Package alarms implements durable persistence for alarm records.
//
// FileStore keeps every record in one JSON document that is replaced
// atomically on each write; SQLiteStore keeps them in an embedded SQLite
// database. Both expose the Store interface the scheduler and engine depend
// on, and both report any I/O failure or timeout as
// alarm.ErrStorageUnavailable.
package alarms
