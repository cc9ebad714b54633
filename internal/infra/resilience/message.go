package resilience

import (
	"errors"
	"fmt"
)

// User-facing messages for terminal failures.
const (
	MsgConnectivity = "Could not reach the server. Check your internet connection and try again."
	MsgTimeout      = "The operation took too long. Check your internet connection and try again."
	MsgTooLarge     = "The file is too large. Choose a smaller file and try again."
	MsgPermission   = "You do not have permission to perform this action."
	MsgSession      = "Your session has expired. Please sign in again."
	MsgValidation   = "Some of the submitted data is invalid. Review it and try again."
	MsgNotFound     = "The requested record no longer exists."
	MsgConflict     = "The record was changed by someone else. Reload and try again."
	MsgGeneric      = "Something went wrong. Please try again."
)

// UserMessage maps err onto a short actionable message. It never returns the
// raw error text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var tErr *TimeoutError
	if errors.As(err, &tErr) && tErr.Timeout > 0 {
		return fmt.Sprintf("The operation took longer than %s. Check your internet connection and try again.", tErr.Timeout)
	}
	if IsTimeout(err) {
		return MsgTimeout
	}
	if IsAuthFailure(err) {
		return MsgSession
	}
	if IsPermissionDenied(err) {
		return MsgPermission
	}
	if IsPayloadTooLarge(err) {
		return MsgTooLarge
	}
	if IsConnectivity(err) {
		return MsgConnectivity
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return MsgValidation
	}

	if code, ok := StatusCode(err); ok {
		switch code {
		case 400, 422:
			return MsgValidation
		case 404:
			return MsgNotFound
		case 409:
			return MsgConflict
		}
	}

	return MsgGeneric
}
