// Package logger wraps zap for the terminal binaries:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level changes,
//   - leveled shortcuts (Infof, WarnKV, ErrorKV, etc.).
//
// Services take a context and pull the logger from it, so a recognition cycle
// logs with the names and fields its caller attached.
package logger
