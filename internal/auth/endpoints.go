package auth

import (
	"net/http"

	"golang.org/x/oauth2"
)

// DefaultScopes are the Microsoft scopes the Xbox Live hop needs.
// offline_access is what makes the provider issue a refresh token.
var DefaultScopes = []string{"XboxLive.signin", "offline_access"}

const userAgent = "mclogin/1.0"

// Endpoints lists every URL the flow talks to. Tests point these at httptest servers.
type Endpoints struct {
	// Microsoft holds the device authorization and token endpoints.
	// AuthURL is unused by the device code flow.
	Microsoft oauth2.Endpoint

	XboxUserAuth     string // platform ticket
	XSTSAuthorize    string // security token
	MinecraftLogin   string // application login
	MinecraftProfile string // profile fetch
}

// DefaultEndpoints returns the production endpoints for consumer Microsoft accounts.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Microsoft: oauth2.Endpoint{
			AuthURL:       "https://login.microsoftonline.com/consumers/oauth2/v2.0/authorize",
			DeviceAuthURL: "https://login.microsoftonline.com/consumers/oauth2/v2.0/devicecode",
			TokenURL:      "https://login.microsoftonline.com/consumers/oauth2/v2.0/token",
			AuthStyle:     oauth2.AuthStyleInParams,
		},
		XboxUserAuth:     "https://user.auth.xboxlive.com/user/authenticate",
		XSTSAuthorize:    "https://xsts.auth.xboxlive.com/xsts/authorize",
		MinecraftLogin:   "https://api.minecraftservices.com/authentication/login_with_xbox",
		MinecraftProfile: "https://api.minecraftservices.com/minecraft/profile",
	}
}

// withDefaults fills empty fields from DefaultEndpoints.
func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.Microsoft.DeviceAuthURL == "" {
		e.Microsoft.DeviceAuthURL = d.Microsoft.DeviceAuthURL
	}
	if e.Microsoft.TokenURL == "" {
		e.Microsoft.TokenURL = d.Microsoft.TokenURL
	}
	if e.Microsoft.AuthURL == "" {
		e.Microsoft.AuthURL = d.Microsoft.AuthURL
	}
	if e.XboxUserAuth == "" {
		e.XboxUserAuth = d.XboxUserAuth
	}
	if e.XSTSAuthorize == "" {
		e.XSTSAuthorize = d.XSTSAuthorize
	}
	if e.MinecraftLogin == "" {
		e.MinecraftLogin = d.MinecraftLogin
	}
	if e.MinecraftProfile == "" {
		e.MinecraftProfile = d.MinecraftProfile
	}
	return e
}

// HTTPDoer is the transport the flow needs. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
