// Package recommendation provides the result of a playlist analysis and the
// error kinds it can fail with.
package recommendation

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind classifies why an analysis did not produce a recommendation.
type Kind int

const (
	KindNone Kind = iota
	KindInvalidInput
	KindEmptyResult
	KindRateLimited
	KindRemoteFailure
	KindTimeoutExceeded
)

// Code returns the message code for the kind.
func (k Kind) Code() string {
	switch k {
	case KindNone:
		return ""
	case KindInvalidInput:
		return "invalid_input"
	case KindEmptyResult:
		return "empty_result"
	case KindRateLimited:
		return "rate_limited"
	case KindRemoteFailure:
		return "remote_failure"
	case KindTimeoutExceeded:
		return "timeout_exceeded"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) String() string {
	if k == KindNone {
		return "none"
	}
	return k.Code()
}

// Error carries a Kind alongside its cause.
type Error struct {
	Kind Kind
	Err  error
}

// NewError wraps err with the given kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or KindNone.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

// Result is what the caller of an analysis receives.
type Result struct {
	Message        string  // Human-readable status
	Recommendation *string // Recommended song, nil when none was produced
	Kind           Kind    // KindNone on success
}

// OK reports whether the analysis finished without error.
// An empty playlist or empty generation is still OK.
func (r Result) OK() bool {
	return r.Kind == KindNone
}
