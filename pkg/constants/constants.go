// Package constants provides shared constants used throughout the calsync
// codebase. This includes timeouts, limits, file permissions, and the
// well-known link-metadata keys written onto records in both calendar
// systems.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to the
	// remote calendar APIs
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// RunTimeout is the timeout for a complete sync run
	RunTimeout = 30 * time.Minute
)

// Sync window defaults, mirroring the scheduled-run driver behavior.
const (
	// DefaultLookback is how far back the first run looks for changed
	// records when no previous run timestamp is known
	DefaultLookback = 24 * time.Hour

	// DefaultHistory is how far back the workcal change query reaches on a
	// first run
	DefaultHistory = 7 * 24 * time.Hour

	// DefaultOccurringWindow is how far forward the carecal occurring query
	// reaches
	DefaultOccurringWindow = 7 * 24 * time.Hour

	// DefaultOrphanWindow is how far forward orphan cleanup searches for
	// placeholder records
	DefaultOrphanWindow = 14 * 24 * time.Hour

	// EventualConsistencySkew is added to LastSyncAt stamps so a later
	// run's changed-since query does not re-select a record this run just
	// wrote. The remote systems acknowledge writes before they are readable
	// with full fidelity.
	EventualConsistencySkew = 3 * time.Second
)

// Lookup cache sizing. The TTL is fixed regardless of access pattern; the
// cache is bounded by entry count, not bytes.
const (
	// DefaultCacheTTL is how long a remote read stays memoized
	DefaultCacheTTL = 3 * time.Minute

	// DefaultCacheSize is the maximum number of cached entries per client
	DefaultCacheSize = 1024
)

// Link metadata keys stored in each record's key/value side-channel. These
// are fixed well-known strings; both systems carry the same keys.
const (
	// MetaLinkedID holds the counterpart record's id
	MetaLinkedID = "LinkedId"

	// MetaIsPlaceholder marks a record synthesized purely to mirror a
	// counterpart appointment
	MetaIsPlaceholder = "IsPlaceholder"

	// MetaLastSyncAt holds the instant of the last successful sync, in
	// RFC 3339 format
	MetaLastSyncAt = "LastSyncAt"
)

// Record field values shared across systems.
const (
	// UTCTimezoneLabel is the textual timezone attached to workcal
	// date-time fields on write
	UTCTimezoneLabel = "UTC"

	// CareParticipantRolePatient is the participant role carecal uses for
	// the patient on an appointment
	CareParticipantRolePatient = "patient"

	// CareParticipantRoleProvider is the participant role carecal uses for
	// the hosting clinician
	CareParticipantRoleProvider = "provider"

	// CareEventModeInPerson is the default mode for placeholder events
	// created on carecal
	CareEventModeInPerson = "IN-PERSON"
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644

	// SecureFilePermissions is for sensitive files like credentials (rw-------)
	SecureFilePermissions = 0600
)

// Limit constants define various limits and capacities
const (
	// DefaultPageSize is the number of items requested per page from the
	// carecal list endpoints
	DefaultPageSize = 100
)
