// Package observability builds the process logger.
//
// The logger is configured from LOG_LEVEL and LOG_FORMAT. JSON output is the
// default; console output is meant for local development.
package observability
