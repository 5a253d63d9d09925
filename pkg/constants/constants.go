// Package constants provides shared constants used throughout the
// district-stats codebase. This includes timeouts, page sizes, file
// permissions, and aggregation defaults that should be consistent across
// the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// SourceHTTPTimeout is the timeout for every HTTP call made against a
	// source backend, including token exchanges and paginated listings.
	SourceHTTPTimeout = 10 * time.Second

	// RunTimeout is the overall budget for a full collection run.
	RunTimeout = 5 * time.Minute

	// CommandTimeout is the default timeout for CLI commands.
	CommandTimeout = 10 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Collection constants define paging and aggregation defaults
const (
	// DirectoryPageSize is the page size for directory user and device listings.
	DirectoryPageSize = 500

	// CountProbePageSize is the page size for queries that only read the
	// reported total count and discard the records themselves.
	CountProbePageSize = 1

	// DefaultStudentTolerance is the allowed difference between the student
	// counts reported by the student-information and directory services
	// before a discrepancy note is recorded.
	DefaultStudentTolerance = 10

	// MaxErrorBodyLength is the number of response-body bytes preserved in
	// error messages for diagnostics.
	MaxErrorBodyLength = 200
)
