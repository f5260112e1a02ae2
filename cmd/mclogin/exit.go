package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/waabox/mclogin/internal/auth"
	"github.com/waabox/mclogin/internal/profile"
)

// Exit codes for scripting.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (network, configuration, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates a new device code login is needed.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the login was refused or did not complete.
	ExitCodeAuthFailed = 3
	// ExitCodeCancelled indicates the user interrupted the command.
	ExitCodeCancelled = 130
)

// exitCode maps err to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	if errors.Is(err, auth.ErrCancelled) || errors.Is(err, context.Canceled) {
		return ExitCodeCancelled
	}

	var expired *profile.AuthExpiredError
	if errors.As(err, &expired) ||
		errors.Is(err, auth.ErrNoAccount) ||
		errors.Is(err, auth.ErrInvalidRefreshToken) {
		return ExitCodeAuthRequired
	}

	switch auth.KindOf(err) {
	case auth.KindDenied, auth.KindAuthorization, auth.KindProfileNotFound, auth.KindTimeout:
		return ExitCodeAuthFailed
	}
	return ExitCodeError
}

// errorMessage renders err for the terminal with a hint when the user can act on it.
func errorMessage(err error) string {
	var expired *profile.AuthExpiredError
	switch {
	case errors.As(err, &expired):
		return fmt.Sprintf("the session for %s expired and could not be refreshed\n\nTo sign in again, run:\n  mclogin login", expired.Player)
	case errors.Is(err, auth.ErrNoAccount):
		return err.Error() + "\n\nTo sign in, run:\n  mclogin login"
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		return auth.UserMessage(err) + "\n\nTo sign in again, run:\n  mclogin login"
	case auth.KindOf(err) != auth.KindUnknown:
		return auth.UserMessage(err)
	}
	return err.Error()
}
