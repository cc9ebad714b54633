package resilience

import (
	"errors"
	"net"
	"strings"
)

// Verdict is the two-valued outcome of Classify.
type Verdict int

const (
	Retryable Verdict = iota
	Fatal
)

func (v Verdict) String() string {
	if v == Fatal {
		return "fatal"
	}
	return "retryable"
}

var (
	retryableStatus = map[int]bool{
		408: true, 429: true,
		500: true, 502: true, 503: true, 504: true,
		520: true, 521: true, 522: true, 523: true, 524: true,
	}
	fatalStatus = map[int]bool{
		400: true, 401: true, 403: true, 404: true, 409: true, 413: true, 422: true,
	}

	networkPatterns = []string{
		"network error",
		"networkerror",
		"failed to fetch",
		"fetch failed",
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"dns lookup",
		"dns resolution",
		"server misbehaving",
		"i/o timeout",
	}
	fatalPatterns = []string{
		// payload size
		"payload too large",
		"entity too large",
		"exceeded the maximum allowed size",
		// authentication / authorization
		"unauthorized",
		"forbidden",
		"permission denied",
		"not authenticated",
		"session expired",
		"jwt expired",
		"invalid token",
		"invalid login credentials",
		// input validation
		"validation failed",
		"invalid input",
		"violates",
	}
)

// Classify decides whether err is worth retrying. The first matching rule wins:
//
//  1. executor-generated operation timeout -> Retryable
//  2. network/connectivity fault -> Retryable
//  3. status 408, 429, 5xx gateway family -> Retryable
//  4. status 400, 401, 403, 404, 409, 413, 422 -> Fatal
//  5. payload size, auth or validation failure -> Fatal
//  6. anything else -> Retryable
//
// Unrecognized failures are treated as transient on purpose.
func Classify(err error) Verdict {
	if err == nil {
		return Retryable // Should not happen
	}

	msg := strings.ToLower(err.Error())

	if errors.Is(err, ErrOperationTimeout) || strings.Contains(msg, operationTimeoutMarker) {
		return Retryable
	}

	if IsConnectivity(err) {
		return Retryable
	}

	if code, ok := StatusCode(err); ok {
		if retryableStatus[code] {
			return Retryable
		}
		if fatalStatus[code] {
			return Fatal
		}
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrPermissionDenied) {
		return Fatal
	}
	for _, p := range fatalPatterns {
		if strings.Contains(msg, p) {
			return Fatal
		}
	}

	return Retryable
}

// IsRetryable is shorthand for Classify(err) == Retryable.
func IsRetryable(err error) bool {
	return Classify(err) == Retryable
}

// IsConnectivity reports whether err looks like a network fault.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNetwork) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range networkPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTimeout reports whether err is, or wraps, an executor operation timeout.
func IsTimeout(err error) bool {
	return err != nil && errors.Is(err, ErrOperationTimeout)
}

// IsAuthFailure reports whether err means the session is expired or invalid.
// Such failures can never succeed by retrying with the same session.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrUnauthenticated) {
		return true
	}
	if code, ok := StatusCode(err); ok && code == 401 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "jwt expired") ||
		strings.Contains(msg, "invalid token") ||
		strings.Contains(msg, "session expired") ||
		strings.Contains(msg, "invalid refresh token")
}

// IsPayloadTooLarge reports whether err means the payload exceeded a size limit.
func IsPayloadTooLarge(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := StatusCode(err); ok && code == 413 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "payload too large") ||
		strings.Contains(msg, "entity too large") ||
		strings.Contains(msg, "exceeded the maximum allowed size")
}

// IsPermissionDenied reports whether err is an authorization failure.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermissionDenied) {
		return true
	}
	code, ok := StatusCode(err)
	return ok && code == 403
}
