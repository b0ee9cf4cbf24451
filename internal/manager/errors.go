package manager

import (
	"errors"
	"net/http"
)

// Kind classifies manager failures.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindLoadFailure
	KindModelNotLoaded
	KindTokenization
	KindPromptTooLong
	KindContextCreation
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindLoadFailure:
		return "load_failure"
	case KindModelNotLoaded:
		return "model_not_loaded"
	case KindTokenization:
		return "tokenization_failure"
	case KindPromptTooLong:
		return "prompt_too_long"
	case KindContextCreation:
		return "context_creation_failure"
	case KindDecode:
		return "decode_failure"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by the manager. Err carries the
// underlying engine or filesystem error when there is one.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps the error to an HTTP status for the API layer.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindModelNotLoaded:
		return http.StatusServiceUnavailable
	case KindTokenization, KindPromptTooLong:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func newError(k Kind, msg string, err error) *Error { return &Error{Kind: k, Msg: msg, Err: err} }

// KindOf returns the Kind of err, or 0 when err is not a manager error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsNotFound reports whether the weight file was missing.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsLoadFailure reports whether both the accelerated and fallback loads failed.
func IsLoadFailure(err error) bool { return KindOf(err) == KindLoadFailure }

// IsModelNotLoaded reports whether a generation found the slot empty.
func IsModelNotLoaded(err error) bool { return KindOf(err) == KindModelNotLoaded }

// IsPromptTooLong reports whether the prompt did not leave room for max_tokens.
func IsPromptTooLong(err error) bool { return KindOf(err) == KindPromptTooLong }

// IsDecodeFailure reports whether the engine failed while evaluating tokens.
func IsDecodeFailure(err error) bool { return KindOf(err) == KindDecode }
