// Package apierr defines the error vocabulary returned by the dispatch
// core. Every query entry point on engine.Engine returns a Status built
// from this package rather than a bare Go error, so callers (and tests)
// can switch on ErrorKind without string matching.
//
// Construction errors (bad storage config) are still plain Go errors,
// since they abort engine creation rather than flow through a query
// Status — see config.Load and facade.NewLocal.
package apierr

import "fmt"

// ErrorKind is the machine-readable classification of a failed query,
// matching the error table of the dispatch specification.
type ErrorKind string

const (
	// ConfigInvalid is surfaced by engine construction, never by a query.
	ConfigInvalid ErrorKind = "ConfigInvalid"

	// DatasetUnavailable means the shared facade could not attach to (or
	// verify) a published dataset generation.
	DatasetUnavailable ErrorKind = "DatasetUnavailable"

	// TooManyLocations means a plugin's location cap was exceeded.
	TooManyLocations ErrorKind = "TooManyLocations"

	// InvalidParameters means the plugin rejected its own parameters
	// (bad coordinates, empty waypoint list, etc).
	InvalidParameters ErrorKind = "InvalidParameters"

	// NoSegment, NoRoute, NoMatch, NoTrip are plugin-specific "ran fine,
	// found nothing" outcomes.
	NoSegment ErrorKind = "NoSegment"
	NoRoute   ErrorKind = "NoRoute"
	NoMatch   ErrorKind = "NoMatch"
	NoTrip    ErrorKind = "NoTrip"

	// InternalError covers unexpected plugin failure, including a
	// recovered panic.
	InternalError ErrorKind = "InternalError"
)

// recoverable reports whether the same query could plausibly succeed on
// retry without any external state change. It mirrors the "Recoverable
// locally?" column of the error table; every kind here is query-scoped
// (No for all, per that table), kept as a method so callers don't need
// to duplicate the table.
func (k ErrorKind) recoverable() bool { return false }

// Status is the result of a query entry point: either Ok (the plugin
// produced a result) or Error(kind, message).
type Status struct {
	ok      bool
	kind    ErrorKind
	message string
}

// Ok is the zero-value-equivalent success status.
func Ok() Status { return Status{ok: true} }

// Error builds a failed status of the given kind.
func Error(kind ErrorKind, format string, args ...any) Status {
	return Status{kind: kind, message: fmt.Sprintf(format, args...)}
}

// IsOk reports whether the query succeeded.
func (s Status) IsOk() bool { return s.ok }

// Kind returns the ErrorKind of a failed status. Calling it on an Ok
// status returns the zero value "".
func (s Status) Kind() ErrorKind { return s.kind }

// Message returns the human-readable detail of a failed status.
func (s Status) Message() string { return s.message }

// Recoverable reports whether retrying the same query without any
// external state change could plausibly succeed.
func (s Status) Recoverable() bool {
	if s.ok {
		return true
	}
	return s.kind.recoverable()
}

// Error implements the error interface so a Status can be returned
// directly from functions that also need to satisfy `error`-shaped
// call sites (e.g. the loader CLI).
func (s Status) Error() string {
	if s.ok {
		return "ok"
	}
	return fmt.Sprintf("%s: %s", s.kind, s.message)
}
