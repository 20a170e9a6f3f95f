package bootstrap

import "gitlab.com/NebulousLabs/errors"

const (
	// KindConnection names ErrConnection in reports.
	KindConnection = "ConnectionError"
	// KindCredentialConflict names ErrCredentialConflict in reports.
	KindCredentialConflict = "CredentialConflict"
	// KindIndexConflict names ErrIndexConflict in reports.
	KindIndexConflict = "IndexConflict"
	// KindConfiguration names ErrConfiguration in reports.
	KindConfiguration = "ConfigurationError"
	// KindUnknown is used for errors outside of the taxonomy.
	KindUnknown = "UnknownError"
)

const (
	// ExitOK is the exit code of a run in which every database succeeded.
	ExitOK = 0
	// ExitConfiguration is the exit code for malformed configuration.
	ExitConfiguration = 1
	// ExitConflict is the exit code for credential and index conflicts which
	// need an operator to resolve them.
	ExitConflict = 2
	// ExitConnection is the exit code for an unreachable store. The run may be
	// retried.
	ExitConnection = 3
	// ExitUnknown is the exit code for any other failure.
	ExitUnknown = 10
)

var (
	// ErrConnection is returned when the store can't be reached. It is
	// transient and the whole run may be retried.
	ErrConnection = errors.New("store connection error")

	// ErrCredentialConflict is returned when a credential exists with
	// different permissions than declared. We never widen or narrow access of
	// an existing credential automatically.
	ErrCredentialConflict = errors.New("credential conflict")

	// ErrIndexConflict is returned when an index on the same fields or with
	// the same name exists with different options.
	ErrIndexConflict = errors.New("index conflict")

	// ErrConfiguration is returned for malformed input. It is always returned
	// before any store access is attempted.
	ErrConfiguration = errors.New("invalid configuration")
)

// Kind returns the name of the error category err belongs to.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Contains(err, ErrConfiguration):
		return KindConfiguration
	case errors.Contains(err, ErrCredentialConflict):
		return KindCredentialConflict
	case errors.Contains(err, ErrIndexConflict):
		return KindIndexConflict
	case errors.Contains(err, ErrConnection):
		return KindConnection
	}
	return KindUnknown
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	switch Kind(err) {
	case "":
		return ExitOK
	case KindConfiguration:
		return ExitConfiguration
	case KindCredentialConflict, KindIndexConflict:
		return ExitConflict
	case KindConnection:
		return ExitConnection
	}
	return ExitUnknown
}
