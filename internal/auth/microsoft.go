package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/waabox/mclogin/internal/logging"
)

const deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// MicrosoftDeviceFlow implements the OAuth 2.0 Device Authorization Grant (RFC 8628)
// against the Microsoft identity platform, plus the refresh_token grant.
// See https://learn.microsoft.com/entra/identity-platform/v2-oauth2-device-code
type MicrosoftDeviceFlow struct {
	client   HTTPDoer
	endpoint oauth2.Endpoint
	clock    Clock
	logger   *slog.Logger
}

// NewMicrosoftDeviceFlow creates a MicrosoftDeviceFlow.
// Empty endpoint URLs fall back to the consumer tenant. nil clock and logger use the defaults.
func NewMicrosoftDeviceFlow(client HTTPDoer, endpoint oauth2.Endpoint, clock Clock, logger *slog.Logger) *MicrosoftDeviceFlow {
	d := DefaultEndpoints().Microsoft
	if endpoint.DeviceAuthURL == "" {
		endpoint.DeviceAuthURL = d.DeviceAuthURL
	}
	if endpoint.TokenURL == "" {
		endpoint.TokenURL = d.TokenURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MicrosoftDeviceFlow{
		client:   client,
		endpoint: endpoint,
		clock:    clock,
		logger:   logging.Subsystem(logger, "microsoft"),
	}
}

// RequestChallenge starts a device code login. The returned challenge's UserCode
// must be shown to the user along with VerificationURI.
func (f *MicrosoftDeviceFlow) RequestChallenge(ctx context.Context, clientID string, scopes []string) (DeviceCodeChallenge, error) {
	const op = "devicecode"
	if strings.TrimSpace(clientID) == "" {
		return DeviceCodeChallenge{}, newError(KindConfiguration, op, "client id is not set")
	}
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	if err := ctx.Err(); err != nil {
		return DeviceCodeChallenge{}, cancelled(ctx, op)
	}

	data := url.Values{}
	data.Set("client_id", clientID)
	data.Set("scope", strings.Join(scopes, " "))

	// Stamped before sending; the server window cannot start earlier.
	issuedAt := f.clock.Now()
	resp, err := postForm(ctx, f.client, op, f.endpoint.DeviceAuthURL, data)
	if err != nil {
		return DeviceCodeChallenge{}, err
	}
	if !resp.ok() {
		return DeviceCodeChallenge{}, oauthFailure(op, resp)
	}

	var raw struct {
		DeviceCode      string `json:"device_code"`
		UserCode        string `json:"user_code"`
		VerificationURI string `json:"verification_uri"`
		ExpiresIn       int    `json:"expires_in"`
		Interval        int    `json:"interval"`
		Message         string `json:"message"`
	}
	if err := decode(op, resp, &raw); err != nil {
		return DeviceCodeChallenge{}, err
	}
	switch {
	case raw.DeviceCode == "":
		return DeviceCodeChallenge{}, missingField(op, resp, "device_code")
	case raw.UserCode == "":
		return DeviceCodeChallenge{}, missingField(op, resp, "user_code")
	case raw.VerificationURI == "":
		return DeviceCodeChallenge{}, missingField(op, resp, "verification_uri")
	case raw.ExpiresIn <= 0:
		return DeviceCodeChallenge{}, missingField(op, resp, "expires_in")
	}
	interval := raw.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	f.logger.Debug("device code issued", "expires_in", raw.ExpiresIn, "interval", interval)
	return DeviceCodeChallenge{
		DeviceCode:      raw.DeviceCode,
		UserCode:        raw.UserCode,
		VerificationURI: raw.VerificationURI,
		Message:         raw.Message,
		ExpiresIn:       raw.ExpiresIn,
		Interval:        interval,
		IssuedAt:        issuedAt,
	}, nil
}

// tokenResponse is the success body of the token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

func (t tokenResponse) providerToken() ProviderToken {
	return ProviderToken{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresIn:    t.ExpiresIn,
	}
}

// pollResult is the outcome of a single token endpoint request during device code polling.
type pollResult struct {
	Token ProviderToken
	// Code is the OAuth error code; empty on success.
	Code string
	// Interval is the server-suggested interval on slow_down, 0 when absent.
	Interval int
}

// pollOnce performs exactly one device code token request.
// OAuth error bodies are returned in pollResult.Code, not as errors.
func (f *MicrosoftDeviceFlow) pollOnce(ctx context.Context, clientID, deviceCode string) (pollResult, error) {
	const op = "poll"
	data := url.Values{}
	data.Set("grant_type", deviceCodeGrantType)
	data.Set("client_id", clientID)
	data.Set("device_code", deviceCode)

	resp, err := postForm(ctx, f.client, op, f.endpoint.TokenURL, data)
	if err != nil {
		return pollResult{}, err
	}
	if !resp.ok() {
		var oe oauthError
		if decode(op, resp, &oe) != nil || oe.Error == "" {
			return pollResult{}, unexpectedStatus(op, resp)
		}
		return pollResult{Code: oe.Error, Interval: oe.Interval}, nil
	}

	var tok tokenResponse
	if err := decode(op, resp, &tok); err != nil {
		return pollResult{}, err
	}
	if tok.AccessToken == "" {
		return pollResult{}, missingField(op, resp, "access_token")
	}
	if !strings.EqualFold(tok.TokenType, "Bearer") {
		return pollResult{}, &Error{Kind: KindMalformedResponse, Op: op, Status: resp.Status, Message: "unexpected token_type " + tok.TokenType}
	}
	return pollResult{Token: tok.providerToken()}, nil
}

// RefreshToken exchanges a Microsoft refresh token for a new provider token.
// A rejected refresh token yields an ErrInvalidRefreshToken error.
func (f *MicrosoftDeviceFlow) RefreshToken(ctx context.Context, clientID string, scopes []string, refreshToken string) (ProviderToken, error) {
	const op = "refresh"
	if strings.TrimSpace(refreshToken) == "" {
		return ProviderToken{}, newError(KindInvalidRefreshToken, op, "no refresh token")
	}
	if strings.TrimSpace(clientID) == "" {
		return ProviderToken{}, newError(KindConfiguration, op, "client id is not set")
	}
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	if err := ctx.Err(); err != nil {
		return ProviderToken{}, cancelled(ctx, op)
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", clientID)
	data.Set("refresh_token", refreshToken)
	data.Set("scope", strings.Join(scopes, " "))

	resp, err := postForm(ctx, f.client, op, f.endpoint.TokenURL, data)
	if err != nil {
		return ProviderToken{}, err
	}
	if !resp.ok() {
		if resp.Status == http.StatusBadRequest || resp.Status == http.StatusUnauthorized {
			e := oauthFailure(op, resp)
			if e.Code != "invalid_client" && e.Code != "unauthorized_client" {
				e.Kind = KindInvalidRefreshToken
			}
			return ProviderToken{}, e
		}
		return ProviderToken{}, oauthFailure(op, resp)
	}

	var tok tokenResponse
	if err := decode(op, resp, &tok); err != nil {
		return ProviderToken{}, err
	}
	if tok.AccessToken == "" {
		return ProviderToken{}, missingField(op, resp, "access_token")
	}
	if tok.RefreshToken == "" {
		// Microsoft may omit a rotated refresh token; the old one stays valid.
		tok.RefreshToken = refreshToken
	}
	f.logger.Debug("provider token refreshed", "expires_in", tok.ExpiresIn, "refresh_token", logging.Redacted(tok.RefreshToken))
	return tok.providerToken(), nil
}

// oauthFailure classifies a non-2xx response from the device code or token endpoint.
func oauthFailure(op string, resp response) *Error {
	e := &Error{Kind: KindNetwork, Op: op, Status: resp.Status}
	var oe oauthError
	if decode(op, resp, &oe) == nil && oe.Error != "" {
		e.Code = oe.Error
		e.Message = oe.ErrorDescription
		switch oe.Error {
		case "invalid_client", "unauthorized_client", "invalid_scope", "invalid_request":
			e.Kind = KindConfiguration
		case "invalid_grant":
			e.Kind = KindInvalidRefreshToken
		}
		return e
	}
	if resp.Status == http.StatusUnauthorized || resp.Status == http.StatusForbidden {
		e.Kind = KindAuthorization
	}
	e.Message = "unexpected status " + http.StatusText(resp.Status)
	return e
}
