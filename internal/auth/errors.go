package auth

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failure of an authentication attempt.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindConfiguration is a bad client setup. Not retryable; fix and restart.
	KindConfiguration
	// KindNetwork is a transport failure. The caller may retry the whole attempt.
	KindNetwork
	// KindMalformedResponse is a provider contract violation.
	KindMalformedResponse
	// KindAuthorization is an explicit rejection by one of the providers.
	KindAuthorization
	// KindDenied means the user declined the device code request.
	KindDenied
	// KindTimeout means the device code window elapsed.
	KindTimeout
	// KindProfileNotFound means the identity does not own the game.
	KindProfileNotFound
	// KindCancelled is a caller-initiated abort.
	KindCancelled
	// KindInvalidRefreshToken means a full device code login is required.
	KindInvalidRefreshToken
)

// String makes ErrorKind satisfy the fmt.Stringer interface.
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindNetwork:
		return "network error"
	case KindMalformedResponse:
		return "malformed response"
	case KindAuthorization:
		return "authorization error"
	case KindDenied:
		return "denied"
	case KindTimeout:
		return "timeout"
	case KindProfileNotFound:
		return "profile not found"
	case KindCancelled:
		return "cancelled"
	case KindInvalidRefreshToken:
		return "invalid refresh token"
	default:
		return "unknown error"
	}
}

// Error is the single error type returned by this package.
// Op names the step that failed ("devicecode", "poll", "xbl", "xsts", "login", "profile", "refresh").
type Error struct {
	Kind    ErrorKind
	Op      string
	Status  int    // HTTP status when one was received
	Code    string // provider error code (OAuth error, XErr), if any
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
// This lets callers write errors.Is(err, auth.ErrTimeout).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrConfiguration       = &Error{Kind: KindConfiguration}
	ErrNetwork             = &Error{Kind: KindNetwork}
	ErrMalformedResponse   = &Error{Kind: KindMalformedResponse}
	ErrAuthorization       = &Error{Kind: KindAuthorization}
	ErrDenied              = &Error{Kind: KindDenied}
	ErrTimeout             = &Error{Kind: KindTimeout}
	ErrProfileNotFound     = &Error{Kind: KindProfileNotFound}
	ErrCancelled           = &Error{Kind: KindCancelled}
	ErrInvalidRefreshToken = &Error{Kind: KindInvalidRefreshToken}
)

func newError(kind ErrorKind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// cancelled wraps the context error of a done context.
func cancelled(ctx context.Context, op string) *Error {
	return &Error{Kind: KindCancelled, Op: op, Err: ctx.Err()}
}

// KindOf returns the kind of err, or KindUnknown when err was not produced by this package.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the whole attempt may be retried by the caller.
// Only transport failures qualify; denials and rejections never do.
func IsRetryable(err error) bool {
	return KindOf(err) == KindNetwork
}

// UserMessage returns a message suitable for showing to the end user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case KindDenied:
		return "The sign-in request was declined."
	case KindTimeout:
		return "The sign-in code expired before it was used. Start the login again to get a new code."
	case KindProfileNotFound:
		return "This Microsoft account does not own Minecraft: Java Edition."
	case KindInvalidRefreshToken:
		return "The saved session is no longer valid. Log in again with a device code."
	case KindCancelled:
		return "Login cancelled."
	case KindConfiguration:
		if e.Message != "" {
			return "Configuration problem: " + e.Message
		}
		return "Configuration problem."
	case KindAuthorization:
		if e.Message != "" {
			return "Sign-in rejected: " + e.Message
		}
		return "Sign-in rejected by the identity provider."
	case KindNetwork:
		return "Could not reach the authentication service. Check your connection and try again."
	default:
		return err.Error()
	}
}
