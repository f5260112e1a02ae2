package auth

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// defaultPollInterval is used when the device code response omits "interval" (RFC 8628 section 3.2).
const defaultPollInterval = 5

// DeviceCodeChallenge holds the initial response from a device authorization request.
// It contains the code to show the user and the parameters needed for polling.
// A challenge is single-use: once ExpiresIn has elapsed since IssuedAt it cannot be polled again.
type DeviceCodeChallenge struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	Message         string    // human-readable instructions from the provider, may be empty
	ExpiresIn       int       // seconds until the device code expires
	Interval        int       // minimum polling interval in seconds
	IssuedAt        time.Time // stamped from the injected clock just before the request was sent; Poll rejects a zero value
}

// ExpiresAt returns the instant after which the challenge is no longer valid.
func (c DeviceCodeChallenge) ExpiresAt() time.Time {
	return c.IssuedAt.Add(time.Duration(c.ExpiresIn) * time.Second)
}

// Expired reports whether the challenge window has elapsed at now.
func (c DeviceCodeChallenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt())
}

// IntervalDuration returns the polling interval, falling back to the RFC default.
func (c DeviceCodeChallenge) IntervalDuration() time.Duration {
	if c.Interval <= 0 {
		return defaultPollInterval * time.Second
	}
	return time.Duration(c.Interval) * time.Second
}

// ProviderToken holds the tokens returned by the Microsoft token endpoint,
// either after device code polling or after a refresh.
type ProviderToken struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
}

// ToOAuth2Token converts the token for use with golang.org/x/oauth2 clients.
// issuedAt anchors ExpiresIn.
func (t ProviderToken) ToOAuth2Token(issuedAt time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresIn > 0 {
		tok.Expiry = issuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return tok
}

// Ticket is the result of one Xbox token exchange: the opaque token, the user hash
// from the display claims, and the raw response body.
type Ticket struct {
	Token    string
	UserHash string
	NotAfter time.Time
	Raw      json.RawMessage
}

// UserTicket is the Xbox Live user token obtained from the Microsoft access token.
type UserTicket struct{ Ticket }

// SecurityTicket is the XSTS token authorizing the Minecraft services relying party.
type SecurityTicket struct{ Ticket }

// LoginToken is the Minecraft services access token returned by login_with_xbox.
type LoginToken struct {
	AccessToken string
	ExpiresIn   int
	Raw         json.RawMessage
}

// Profile is the Minecraft: Java Edition profile of the authenticated player.
type Profile struct {
	ID   uuid.UUID
	Name string
	Raw  json.RawMessage
}

// FederatedCredential is the final output of a successful authentication.
// The core never persists it; storing it is the caller's job.
type FederatedCredential struct {
	PlayerName   string
	PlayerID     uuid.UUID
	AccessToken  string
	RefreshToken string // Microsoft refresh token, used by RefreshExisting
	ObtainedAt   time.Time
	ExpiresAt    time.Time // zero when the provider reported no lifetime
}

// Expired reports whether the Minecraft access token has expired at now.
// Credentials without a known expiry never report expired.
func (c FederatedCredential) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// OAuth2Token exposes the Minecraft access token as an oauth2.Token.
func (c FederatedCredential) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.ExpiresAt,
	}
}
