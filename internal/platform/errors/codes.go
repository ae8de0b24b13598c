package errors

import stderrors "errors"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Transport errors
	CodeNetworkFailure    Code = "NETWORK_FAILURE"
	CodeMalformedResponse Code = "MALFORMED_RESPONSE"

	// Auth errors
	CodeAuthenticationRequired Code = "AUTHENTICATION_REQUIRED"

	// Engagement errors
	CodeToggleRolledBack Code = "TOGGLE_ROLLED_BACK"

	// Storage errors
	CodeNotFound           Code = "NOT_FOUND"
	CodeStorageWriteFailed Code = "STORAGE_WRITE_FAILED"
)

// CodeOf extracts the domain code from an error chain, or CodeUnknown.
func CodeOf(err error) Code {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeUnknown
}

// IsNetwork reports whether err carries CodeNetworkFailure.
func IsNetwork(err error) bool {
	return CodeOf(err) == CodeNetworkFailure
}

// IsMalformed reports whether err carries CodeMalformedResponse.
func IsMalformed(err error) bool {
	return CodeOf(err) == CodeMalformedResponse
}

// IsAuthenticationRequired reports whether err carries CodeAuthenticationRequired.
func IsAuthenticationRequired(err error) bool {
	return CodeOf(err) == CodeAuthenticationRequired
}

// IsRolledBack reports whether err carries CodeToggleRolledBack.
func IsRolledBack(err error) bool {
	return CodeOf(err) == CodeToggleRolledBack
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}
