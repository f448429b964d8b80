// Package api composes the URL builder, fetcher, parser, session and
// dynamic extractor into the public scraping operations.
package api

import (
	"errors"
	"fmt"
)

// The three error kinds surfaced to callers. Every public operation
// returns either data, or exactly one of these; no transport or parser
// error crosses the boundary raw. Callers branch with errors.As / the Is*
// helpers.

// NetworkError covers connectivity failures, non-2xx statuses and
// oversized responses. Worth a user-facing retry.
type NetworkError struct {
	Message string
	Cause   error
}

func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// ParseError means the document arrived but required fields were
// unrecoverable. Also worth a retry; the site may have served a partial
// page.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error { return e.Cause }

// NoDataError means a well-formed response legitimately had nothing for
// us: empty listings, gated content, under-length queries. Present as
// "nothing here", not as a failure.
type NoDataError struct {
	Message string
}

func (e *NoDataError) Error() string { return e.Message }

func netErr(msg string, cause error) error   { return &NetworkError{Message: msg, Cause: cause} }
func parseErr(msg string, cause error) error { return &ParseError{Message: msg, Cause: cause} }
func noData(msg string) error                { return &NoDataError{Message: msg} }

// IsNetworkError reports whether err is (or wraps) a NetworkError.
func IsNetworkError(err error) bool {
	var e *NetworkError
	return errors.As(err, &e)
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}

// IsNoData reports whether err is (or wraps) a NoDataError.
func IsNoData(err error) bool {
	var e *NoDataError
	return errors.As(err, &e)
}
