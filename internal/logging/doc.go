// Package logging provides a simple leveled logging interface for the
// image-resize-ai service and CLI.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The level is configured via the DEBUG and LOG_LEVEL environment variables.
// Output goes through zerolog: a console writer when stderr is a terminal,
// JSON lines otherwise. Stdout is never written to, so the CLI can reserve it
// for its JSON result.
package logging
