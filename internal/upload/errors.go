package upload

import (
	"fmt"

	"github.com/vietddude/tourdesk/internal/infra/resilience"
)

// Reason says why an upload failed.
type Reason string

const (
	ReasonInvalidType  Reason = "invalid_type"
	ReasonEmpty        Reason = "empty"
	ReasonTooLarge     Reason = "too_large"
	ReasonConnectivity Reason = "connectivity"
	ReasonFailed       Reason = "failed"
)

// Error is a failed upload. Error() is safe to show to end users; the
// underlying cause is available through Unwrap.
type Error struct {
	Reason Reason
	Kind   Kind
	// Limit is the size ceiling in bytes for ReasonTooLarge, when known.
	Limit int64
	Err   error
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonInvalidType:
		if e.Kind == KindDocument {
			return "Only PDF documents can be uploaded."
		}
		return "Only image files can be uploaded."
	case ReasonEmpty:
		return "The selected file is empty."
	case ReasonTooLarge:
		if e.Limit > 0 {
			return fmt.Sprintf("The file is too large. The maximum size is %d MB.", e.Limit/MiB)
		}
		return resilience.MsgTooLarge
	case ReasonConnectivity:
		return "The upload failed because the server could not be reached. Check your internet connection and try again."
	default:
		return "The upload failed. Please try again."
	}
}

func (e *Error) Unwrap() error { return e.Err }

// failure maps a terminal executor error onto an upload Error, using the
// same vocabulary as the classifier.
func failure(kind Kind, err error) *Error {
	reason := ReasonFailed
	switch {
	case resilience.IsPayloadTooLarge(err):
		reason = ReasonTooLarge
	case resilience.IsTimeout(err), resilience.IsConnectivity(err):
		reason = ReasonConnectivity
	}
	return &Error{Reason: reason, Kind: kind, Err: err}
}
