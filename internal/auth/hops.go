package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/waabox/mclogin/internal/logging"
)

const (
	xblSiteName        = "user.auth.xboxlive.com"
	xblRelyingParty    = "http://auth.xboxlive.com"
	xstsRelyingParty   = "rp://api.minecraftservices.com/"
	xstsSandbox        = "RETAIL"
	xboxTokenType      = "JWT"
	xboxAuthMethod     = "RPS"
	identityTokenStart = "XBL3.0 x="
)

// xerrReasons maps XSTS XErr codes to the reason shown to the user.
var xerrReasons = map[int64]string{
	2148916233: "this Microsoft account has no Xbox profile; create one at xbox.com and try again",
	2148916235: "Xbox Live is not available in this account's country or region",
	2148916236: "this account needs adult verification on the Xbox page",
	2148916237: "this account needs adult verification on the Xbox page",
	2148916238: "this is a child account and must be added to a family by an adult",
}

// Exchanger performs the four downstream token exchanges.
// Each method is one HTTP request; none of them retries.
type Exchanger struct {
	client    HTTPDoer
	endpoints Endpoints
	logger    *slog.Logger
}

// NewExchanger creates an Exchanger. Empty endpoint fields fall back to production URLs.
func NewExchanger(client HTTPDoer, endpoints Endpoints, logger *slog.Logger) *Exchanger {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exchanger{
		client:    client,
		endpoints: endpoints.withDefaults(),
		logger:    logging.Subsystem(logger, "exchange"),
	}
}

type xblProperties struct {
	AuthMethod string `json:"AuthMethod"`
	SiteName   string `json:"SiteName"`
	RpsTicket  string `json:"RpsTicket"`
}

type xblRequest struct {
	Properties   xblProperties `json:"Properties"`
	RelyingParty string        `json:"RelyingParty"`
	TokenType    string        `json:"TokenType"`
}

type xstsProperties struct {
	SandboxID  string   `json:"SandboxId"`
	UserTokens []string `json:"UserTokens"`
}

type xstsRequest struct {
	Properties   xstsProperties `json:"Properties"`
	RelyingParty string         `json:"RelyingParty"`
	TokenType    string         `json:"TokenType"`
}

type loginBody struct {
	IdentityToken string `json:"identityToken"`
}

// userTicketRequest builds the Xbox Live user authentication body.
func userTicketRequest(providerAccessToken string) xblRequest {
	return xblRequest{
		Properties: xblProperties{
			AuthMethod: xboxAuthMethod,
			SiteName:   xblSiteName,
			RpsTicket:  "d=" + providerAccessToken,
		},
		RelyingParty: xblRelyingParty,
		TokenType:    xboxTokenType,
	}
}

// securityTokenRequest builds the XSTS authorization body.
func securityTokenRequest(user UserTicket) xstsRequest {
	return xstsRequest{
		Properties: xstsProperties{
			SandboxID:  xstsSandbox,
			UserTokens: []string{user.Token},
		},
		RelyingParty: xstsRelyingParty,
		TokenType:    xboxTokenType,
	}
}

// loginRequest builds the login_with_xbox body: the user hash of the Xbox Live
// ticket followed by the XSTS token.
func loginRequest(user UserTicket, sec SecurityTicket) loginBody {
	return loginBody{IdentityToken: identityTokenStart + user.UserHash + ";" + sec.Token}
}

// xboxResponse is the shape shared by the user authenticate and XSTS authorize endpoints.
type xboxResponse struct {
	Token         string    `json:"Token"`
	NotAfter      time.Time `json:"NotAfter"`
	DisplayClaims struct {
		XUI []struct {
			UHS string `json:"uhs"`
		} `json:"xui"`
	} `json:"DisplayClaims"`
}

type xboxError struct {
	XErr     int64  `json:"XErr"`
	Message  string `json:"Message"`
	Redirect string `json:"Redirect"`
}

func (r xboxResponse) userHash() string {
	if len(r.DisplayClaims.XUI) == 0 {
		return ""
	}
	return r.DisplayClaims.XUI[0].UHS
}

// UserTicket exchanges the Microsoft access token for an Xbox Live user token.
func (x *Exchanger) UserTicket(ctx context.Context, providerAccessToken string) (UserTicket, error) {
	const op = "xbl"
	if providerAccessToken == "" {
		return UserTicket{}, newError(KindConfiguration, op, "empty provider access token")
	}
	resp, err := postJSON(ctx, x.client, op, x.endpoints.XboxUserAuth, userTicketRequest(providerAccessToken))
	if err != nil {
		return UserTicket{}, err
	}
	ticket, err := x.xboxTicket(op, resp, true)
	if err != nil {
		return UserTicket{}, err
	}
	x.logger.Debug("user ticket issued", "not_after", ticket.NotAfter)
	return UserTicket{ticket}, nil
}

// SecurityToken exchanges the user ticket for an XSTS token for the Minecraft services relying party.
func (x *Exchanger) SecurityToken(ctx context.Context, user UserTicket) (SecurityTicket, error) {
	const op = "xsts"
	resp, err := postJSON(ctx, x.client, op, x.endpoints.XSTSAuthorize, securityTokenRequest(user))
	if err != nil {
		return SecurityTicket{}, err
	}
	ticket, err := x.xboxTicket(op, resp, false)
	if err != nil {
		return SecurityTicket{}, err
	}
	x.logger.Debug("security token issued", "not_after", ticket.NotAfter)
	return SecurityTicket{ticket}, nil
}

// xboxTicket parses a ticket response. The user hash is mandatory only when requireHash is set;
// the login assertion takes it from the Xbox Live ticket.
func (x *Exchanger) xboxTicket(op string, resp response, requireHash bool) (Ticket, error) {
	if !resp.ok() {
		return Ticket{}, xboxFailure(op, resp)
	}
	var body xboxResponse
	if err := decode(op, resp, &body); err != nil {
		return Ticket{}, err
	}
	if body.Token == "" {
		return Ticket{}, missingField(op, resp, "Token")
	}
	uhs := body.userHash()
	if requireHash && uhs == "" {
		return Ticket{}, missingField(op, resp, "DisplayClaims.xui[0].uhs")
	}
	return Ticket{Token: body.Token, UserHash: uhs, NotAfter: body.NotAfter, Raw: resp.Body}, nil
}

// xboxFailure maps an Xbox error response, translating XErr codes when present.
func xboxFailure(op string, resp response) error {
	if resp.Status != http.StatusUnauthorized && resp.Status != http.StatusForbidden {
		return unexpectedStatus(op, resp)
	}
	e := &Error{Kind: KindAuthorization, Op: op, Status: resp.Status, Message: "rejected by Xbox Live"}
	var body xboxError
	if json.Unmarshal(resp.Body, &body) == nil && body.XErr != 0 {
		e.Code = strconv.FormatInt(body.XErr, 10)
		if reason, ok := xerrReasons[body.XErr]; ok {
			e.Message = reason
		}
	}
	return e
}

type loginResponse struct {
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// LoginWithXbox exchanges the XSTS token, asserted with the user hash of the Xbox Live
// ticket, for a Minecraft services access token.
func (x *Exchanger) LoginWithXbox(ctx context.Context, user UserTicket, sec SecurityTicket) (LoginToken, error) {
	const op = "login"
	if user.UserHash == "" {
		return LoginToken{}, newError(KindConfiguration, op, "user ticket has no user hash")
	}
	if sec.Token == "" {
		return LoginToken{}, newError(KindConfiguration, op, "empty security token")
	}
	resp, err := postJSON(ctx, x.client, op, x.endpoints.MinecraftLogin, loginRequest(user, sec))
	if err != nil {
		return LoginToken{}, err
	}
	if !resp.ok() {
		return LoginToken{}, unexpectedStatus(op, resp)
	}
	var body loginResponse
	if err := decode(op, resp, &body); err != nil {
		return LoginToken{}, err
	}
	if body.AccessToken == "" {
		return LoginToken{}, missingField(op, resp, "access_token")
	}
	x.logger.Debug("application login complete", "expires_in", body.ExpiresIn, "access_token", logging.Redacted(body.AccessToken))
	return LoginToken{AccessToken: body.AccessToken, ExpiresIn: body.ExpiresIn, Raw: resp.Body}, nil
}

type profileResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Profile fetches the Minecraft profile owned by the login token.
// A 404 means the account does not own the game.
func (x *Exchanger) Profile(ctx context.Context, accessToken string) (Profile, error) {
	const op = "profile"
	resp, err := getBearer(ctx, x.client, op, x.endpoints.MinecraftProfile, accessToken)
	if err != nil {
		return Profile{}, err
	}
	if resp.Status == http.StatusNotFound {
		return Profile{}, &Error{Kind: KindProfileNotFound, Op: op, Status: resp.Status, Message: "no Minecraft profile for this account"}
	}
	if !resp.ok() {
		return Profile{}, unexpectedStatus(op, resp)
	}
	var body profileResponse
	if err := decode(op, resp, &body); err != nil {
		return Profile{}, err
	}
	if body.ID == "" {
		return Profile{}, missingField(op, resp, "id")
	}
	if body.Name == "" {
		return Profile{}, missingField(op, resp, "name")
	}
	// uuid.Parse accepts both the dashed and the 32-hex form the profile API returns.
	id, err := uuid.Parse(body.ID)
	if err != nil {
		return Profile{}, &Error{Kind: KindMalformedResponse, Op: op, Status: resp.Status, Message: "invalid profile id", Err: err}
	}
	return Profile{ID: id, Name: body.Name, Raw: resp.Body}, nil
}

// tokenExpiry returns when a Minecraft access token expires: issuedAt+expiresIn when the
// login response carried a lifetime, else the JWT exp claim, else the zero time.
func tokenExpiry(accessToken string, expiresIn int, issuedAt time.Time) time.Time {
	if expiresIn > 0 {
		return issuedAt.Add(time.Duration(expiresIn) * time.Second)
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
