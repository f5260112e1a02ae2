package auth

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

// refreshingSource refreshes a credential through RefreshExisting once it expires.
type refreshingSource struct {
	ctx       context.Context
	auth      *Authenticator
	onRefresh func(FederatedCredential)

	mu   sync.Mutex
	cred FederatedCredential
}

func (s *refreshingSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred.AccessToken != "" && !s.cred.Expired(s.auth.clock.Now()) {
		return s.cred.OAuth2Token(), nil
	}
	cred, err := s.auth.RefreshExisting(s.ctx, s.cred.RefreshToken)
	if err != nil {
		return nil, err
	}
	s.cred = cred
	if s.onRefresh != nil {
		s.onRefresh(cred)
	}
	return cred.OAuth2Token(), nil
}

// TokenSource returns an oauth2.TokenSource that yields the Minecraft access token of cred
// and transparently refreshes it once expired. onRefresh, if non-nil, receives every
// refreshed credential so the caller can persist it. ctx is used for refresh requests.
func (a *Authenticator) TokenSource(ctx context.Context, cred FederatedCredential, onRefresh func(FederatedCredential)) oauth2.TokenSource {
	src := &refreshingSource{ctx: ctx, auth: a, onRefresh: onRefresh, cred: cred}
	var initial *oauth2.Token
	if cred.AccessToken != "" && !cred.Expired(a.clock.Now()) {
		initial = cred.OAuth2Token()
	}
	return oauth2.ReuseTokenSource(initial, src)
}
