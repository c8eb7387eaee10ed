// Package lockfile keeps a single alarm-server running per state location.
//
// A lock is a small file holding the owner's PID and executable name. A lock
// left behind by a crashed process is detected through the process table
// and taken over.
package lockfile
