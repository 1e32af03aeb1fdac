package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed remote call.
type Kind int

const (
	// KindUnauthorized means the credential is missing or rejected. Callers
	// should drop the session.
	KindUnauthorized Kind = iota + 1
	// KindNotFound means the target resource does not exist remotely.
	KindNotFound
	// KindValidation covers every other 4xx.
	KindValidation
	// KindUnavailable covers transport failures and timeouts.
	KindUnavailable
	// KindServerFault covers 5xx and malformed responses.
	KindServerFault
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "rejected"
	case KindUnavailable:
		return "unavailable"
	case KindServerFault:
		return "server fault"
	default:
		return "unknown"
	}
}

// Error is returned by Send for every failed call.
type Error struct {
	Kind    Kind
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (%d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classification carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind, true
	}
	return 0, false
}

// IsUnauthorized reports whether err means the session is no longer valid.
func IsUnauthorized(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindUnauthorized
}

// ClassifyStatus maps an HTTP status code onto a Kind. It returns 0 for
// success codes.
func ClassifyStatus(status int) Kind {
	switch {
	case status >= 200 && status < 300:
		return 0
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindServerFault
	}
}
