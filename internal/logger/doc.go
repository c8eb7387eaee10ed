// Package logger wraps zap for the alarm clock binaries:
//   - a global sugared logger with a console or JSON encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level changes,
//   - leveled helpers (Info, InfoKV, ErrorKV, etc.) that read the logger from context.
//
// The scheduler, engine and transport take a context and log through it, so
// request and alarm fields follow the call chain.
package logger
