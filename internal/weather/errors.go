package weather

import (
	"context"
	"errors"
	"fmt"
)

// ExtractionKind identifies which structural landmark was missing from the page.
type ExtractionKind string

const (
	MissingHeader       ExtractionKind = "missing header"
	MissingSummary      ExtractionKind = "missing summary"
	MissingSummaryField ExtractionKind = "missing summary field"
	MissingDetails      ExtractionKind = "missing details container"
)

var (
	ErrMissingHeader       = errors.New(string(MissingHeader))
	ErrMissingSummary      = errors.New(string(MissingSummary))
	ErrMissingSummaryField = errors.New(string(MissingSummaryField))
	ErrMissingDetails      = errors.New(string(MissingDetails))
)

// NetworkError reports an unreachable host, a non-success status or a timeout.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a response body that could not be parsed.
type ParseError struct {
	Op  string
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %s: parse: %v", e.Op, e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractionError reports a page that parsed but lacks an expected element.
type ExtractionError struct {
	Kind  ExtractionKind
	Field string // set for MissingSummaryField
}

func (e *ExtractionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("extract: %s %q", e.Kind, e.Field)
	}
	return "extract: " + string(e.Kind)
}

// Is lets errors.Is match the Err* sentinels by kind.
func (e *ExtractionError) Is(target error) bool {
	switch target {
	case ErrMissingHeader:
		return e.Kind == MissingHeader
	case ErrMissingSummary:
		return e.Kind == MissingSummary
	case ErrMissingSummaryField:
		return e.Kind == MissingSummaryField
	case ErrMissingDetails:
		return e.Kind == MissingDetails
	}
	return false
}

// ErrorKind classifies err for display: network, parse, extraction, canceled or unknown.
func ErrorKind(err error) string {
	var (
		netErr     *NetworkError
		parseErr   *ParseError
		extractErr *ExtractionError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &extractErr):
		return "extraction"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &netErr):
		return "network"
	default:
		return "unknown"
	}
}
