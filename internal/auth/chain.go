package auth

import (
	"context"
	"log/slog"

	"github.com/waabox/mclogin/internal/logging"
)

// Resolver turns a Microsoft provider token into a Minecraft credential by running
// the Xbox Live, XSTS, login and profile exchanges in that order.
type Resolver struct {
	exchanger *Exchanger
	clock     Clock
	logger    *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(exchanger *Exchanger, clock Clock, logger *slog.Logger) *Resolver {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		exchanger: exchanger,
		clock:     clock,
		logger:    logging.Subsystem(logger, "chain"),
	}
}

// Resolve runs the exchange chain. The first failing hop ends the attempt;
// ctx is checked before every hop.
func (r *Resolver) Resolve(ctx context.Context, token ProviderToken) (FederatedCredential, error) {
	if token.AccessToken == "" {
		return FederatedCredential{}, newError(KindConfiguration, "xbl", "empty provider access token")
	}

	if ctx.Err() != nil {
		return FederatedCredential{}, cancelled(ctx, "xbl")
	}
	user, err := r.exchanger.UserTicket(ctx, token.AccessToken)
	if err != nil {
		return FederatedCredential{}, err
	}

	if ctx.Err() != nil {
		return FederatedCredential{}, cancelled(ctx, "xsts")
	}
	sec, err := r.exchanger.SecurityToken(ctx, user)
	if err != nil {
		return FederatedCredential{}, err
	}

	if ctx.Err() != nil {
		return FederatedCredential{}, cancelled(ctx, "login")
	}
	login, err := r.exchanger.LoginWithXbox(ctx, user, sec)
	if err != nil {
		return FederatedCredential{}, err
	}
	obtained := r.clock.Now()

	if ctx.Err() != nil {
		return FederatedCredential{}, cancelled(ctx, "profile")
	}
	profile, err := r.exchanger.Profile(ctx, login.AccessToken)
	if err != nil {
		return FederatedCredential{}, err
	}

	r.logger.Info("identity resolved", "player", profile.Name, "uuid", profile.ID)
	return FederatedCredential{
		PlayerName:   profile.Name,
		PlayerID:     profile.ID,
		AccessToken:  login.AccessToken,
		RefreshToken: token.RefreshToken,
		ObtainedAt:   obtained,
		ExpiresAt:    tokenExpiry(login.AccessToken, login.ExpiresIn, obtained),
	}, nil
}
