// Package logger wraps zap to provide:
//   - a global sugared logger with a console encoder on stdout,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - the leveled helpers the services call (Info, InfoKV, WarnKV, ErrorKV, ...).
//
// Every bootstrap step receives a context and logs through the logger stored
// in it, so progress lines carry the step name.
package logger
