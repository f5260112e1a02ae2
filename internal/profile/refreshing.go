// Package profile reads the Minecraft profile of a stored account, refreshing
// the account's access token when the profile service rejects it.
package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/waabox/mclogin/internal/auth"
)

// Fetcher reads a Minecraft profile with an access token.
// *auth.Exchanger and *auth.Authenticator satisfy it.
type Fetcher interface {
	Profile(ctx context.Context, accessToken string) (auth.Profile, error)
}

// AuthExpiredError is returned when both the access token and refresh token are
// invalid, and a device code login is required.
type AuthExpiredError struct {
	Player string
	Err    error
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("%s session expired: log in again", e.Player)
}

func (e *AuthExpiredError) Unwrap() error {
	return e.Err
}

// RefreshingFetcher wraps a Fetcher and transparently handles rejected tokens
// by attempting a silent refresh. If refresh fails, it returns AuthExpiredError.
type RefreshingFetcher struct {
	inner     Fetcher
	player    string
	refreshFn func(ctx context.Context) (string, error)

	mu    sync.Mutex
	token string
}

// NewRefreshingFetcher creates a RefreshingFetcher.
// refreshFn is called once on rejection to obtain a new access token.
func NewRefreshingFetcher(inner Fetcher, player, token string, refreshFn func(ctx context.Context) (string, error)) *RefreshingFetcher {
	return &RefreshingFetcher{
		inner:     inner,
		player:    player,
		refreshFn: refreshFn,
		token:     token,
	}
}

// Token returns the access token currently in use.
func (rf *RefreshingFetcher) Token() string {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.token
}

// Profile fetches the profile, refreshing and retrying once when the token is rejected.
// A missing profile is never retried.
func (rf *RefreshingFetcher) Profile(ctx context.Context) (auth.Profile, error) {
	result, err := rf.inner.Profile(ctx, rf.Token())
	if err == nil || !errors.Is(err, auth.ErrAuthorization) {
		return result, err
	}

	newToken, refreshErr := rf.refreshFn(ctx)
	if refreshErr != nil {
		if errors.Is(refreshErr, auth.ErrCancelled) {
			return auth.Profile{}, refreshErr
		}
		return auth.Profile{}, &AuthExpiredError{Player: rf.player, Err: refreshErr}
	}
	rf.mu.Lock()
	rf.token = newToken
	rf.mu.Unlock()

	return rf.inner.Profile(ctx, newToken)
}
