package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// defaultHTTPTimeout bounds every single request made by the default client.
const defaultHTTPTimeout = 15 * time.Second

// Config is the read-only client configuration shared by all attempts.
type Config struct {
	ClientID  string
	Scopes    []string
	Endpoints Endpoints
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithHTTPClient sets the transport used for every request.
func WithHTTPClient(client HTTPDoer) Option {
	return func(a *Authenticator) {
		a.client = client
	}
}

// WithClock sets the time source.
func WithClock(clock Clock) Option {
	return func(a *Authenticator) {
		a.clock = clock
	}
}

// WithSleep sets the function used to wait between polls.
func WithSleep(sleep SleepFunc) Option {
	return func(a *Authenticator) {
		a.sleep = sleep
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// Authenticator is the entry point for obtaining Minecraft credentials.
// One Authenticator may run any number of concurrent attempts; attempts share
// nothing but the configuration.
type Authenticator struct {
	cfg    Config
	client HTTPDoer
	clock  Clock
	sleep  SleepFunc
	logger *slog.Logger

	flow      *MicrosoftDeviceFlow
	poller    *Poller
	exchanger *Exchanger
	resolver  *Resolver
	refresh   *RefreshFlow
}

// NewAuthenticator validates cfg and wires the flow components.
func NewAuthenticator(cfg Config, opts ...Option) (*Authenticator, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, newError(KindConfiguration, "init", "client id is not set")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	cfg.Endpoints = cfg.Endpoints.withDefaults()

	a := &Authenticator{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.client == nil {
		a.client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if a.clock == nil {
		a.clock = SystemClock()
	}
	if a.sleep == nil {
		a.sleep = Sleep
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}

	a.flow = NewMicrosoftDeviceFlow(a.client, cfg.Endpoints.Microsoft, a.clock, a.logger)
	a.poller = NewPoller(a.flow, a.clock, a.sleep, a.logger)
	a.exchanger = NewExchanger(a.client, cfg.Endpoints, a.logger)
	a.resolver = NewResolver(a.exchanger, a.clock, a.logger)
	a.refresh = &RefreshFlow{flow: a.flow, resolver: a.resolver, clientID: cfg.ClientID, scopes: cfg.Scopes}
	return a, nil
}

// ClientID returns the configured application client id.
func (a *Authenticator) ClientID() string {
	return a.cfg.ClientID
}

// AuthenticateByDeviceCode runs a full device code login. onChallenge is called once
// with the issued challenge before polling starts so the caller can show the user code.
func (a *Authenticator) AuthenticateByDeviceCode(ctx context.Context, onChallenge func(DeviceCodeChallenge)) (FederatedCredential, error) {
	challenge, err := a.flow.RequestChallenge(ctx, a.cfg.ClientID, a.cfg.Scopes)
	if err != nil {
		return FederatedCredential{}, err
	}
	if onChallenge != nil {
		onChallenge(challenge)
	}

	token, err := a.poller.Poll(ctx, a.cfg.ClientID, challenge)
	if err != nil {
		return FederatedCredential{}, err
	}
	if ctx.Err() != nil {
		return FederatedCredential{}, cancelled(ctx, "poll")
	}
	return a.resolver.Resolve(ctx, token)
}

// RefreshExisting obtains a fresh credential from a stored Microsoft refresh token
// without user interaction.
func (a *Authenticator) RefreshExisting(ctx context.Context, refreshToken string) (FederatedCredential, error) {
	return a.refresh.Refresh(ctx, refreshToken)
}

// Profile fetches the profile owned by a Minecraft access token.
func (a *Authenticator) Profile(ctx context.Context, accessToken string) (Profile, error) {
	return a.exchanger.Profile(ctx, accessToken)
}

// RefreshFlow re-enters the exchange chain from a stored refresh token.
type RefreshFlow struct {
	flow     *MicrosoftDeviceFlow
	resolver *Resolver
	clientID string
	scopes   []string
}

// Refresh redeems refreshToken and resolves the resulting provider token.
// The chain is not started when the provider rejects the refresh token.
func (r *RefreshFlow) Refresh(ctx context.Context, refreshToken string) (FederatedCredential, error) {
	token, err := r.flow.RefreshToken(ctx, r.clientID, r.scopes, refreshToken)
	if err != nil {
		return FederatedCredential{}, err
	}
	return r.resolver.Resolve(ctx, token)
}
