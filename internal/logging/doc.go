// Package logging provides a simple leveled logging interface for the
// media-boards service and the boardctl tool.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable.
// Setting LOG_FILE additionally mirrors every line into a size-rotated
// file (see ConfigureFile).
package logging
