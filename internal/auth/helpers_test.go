package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/waabox/mclogin/internal/auth"
)

const (
	testClientID   = "test_client_id"
	testPlayerID   = "069a79f444e94726a5befca90e38aaf5"
	testPlayerName = "Notch"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSleeper records requested sleeps and advances the clock instead of blocking.
type fakeSleeper struct {
	clock *fakeClock

	mu     sync.Mutex
	sleeps []time.Duration
	// before runs at the start of every sleep, with the sleep index.
	before func(i int)
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	i := len(s.sleeps)
	s.sleeps = append(s.sleeps, d)
	before := s.before
	s.mu.Unlock()

	if before != nil {
		before(i)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.clock.Advance(d)
	return nil
}

func (s *fakeSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}

// stubServer plays every endpoint of the login flow. Handlers default to success
// and can be replaced per test before the first request.
type stubServer struct {
	*httptest.Server

	DeviceCode http.HandlerFunc
	Token      http.HandlerFunc
	XBL        http.HandlerFunc
	XSTS       http.HandlerFunc
	Login      http.HandlerFunc
	Profile    http.HandlerFunc

	mu    sync.Mutex
	calls map[string]int
	order []string
}

func newStubServer(t *testing.T) *stubServer {
	t.Helper()
	s := &stubServer{calls: make(map[string]int)}
	s.DeviceCode = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"device_code":      "dev_abc",
			"user_code":        "ABCD-1234",
			"verification_uri": "https://www.microsoft.com/link",
			"expires_in":       900,
			"interval":         5,
			"message":          "To sign in, use a web browser to open the page https://www.microsoft.com/link and enter the code ABCD-1234 to authenticate.",
		})
	}
	s.Token = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"token_type":    "Bearer",
			"access_token":  "ms_access",
			"refresh_token": "ms_refresh",
			"expires_in":    3600,
		})
	}
	s.XBL = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, xboxBody("xbl_token", "uhs123"))
	}
	s.XSTS = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, xboxBody("xsts_token", "xsts_uhs"))
	}
	s.Login = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"username":     "some-uuid",
			"access_token": "mc_access",
			"token_type":   "Bearer",
			"expires_in":   86400,
		})
	}
	s.Profile = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":   testPlayerID,
			"name": testPlayerName,
			"skins": []map[string]string{
				{"state": "ACTIVE", "url": "http://textures.minecraft.net/texture/abc"},
			},
		})
	}

	mux := http.NewServeMux()
	route := func(path string, h func() http.HandlerFunc) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.calls[path]++
			s.order = append(s.order, path)
			s.mu.Unlock()
			h()(w, r)
		})
	}
	route("/devicecode", func() http.HandlerFunc { return s.DeviceCode })
	route("/token", func() http.HandlerFunc { return s.Token })
	route("/xbl", func() http.HandlerFunc { return s.XBL })
	route("/xsts", func() http.HandlerFunc { return s.XSTS })
	route("/login", func() http.HandlerFunc { return s.Login })
	route("/profile", func() http.HandlerFunc { return s.Profile })

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *stubServer) Endpoints() auth.Endpoints {
	return auth.Endpoints{
		Microsoft: oauth2.Endpoint{
			DeviceAuthURL: s.URL + "/devicecode",
			TokenURL:      s.URL + "/token",
		},
		XboxUserAuth:     s.URL + "/xbl",
		XSTSAuthorize:    s.URL + "/xsts",
		MinecraftLogin:   s.URL + "/login",
		MinecraftProfile: s.URL + "/profile",
	}
}

func (s *stubServer) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *stubServer) Order() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func xboxBody(token, uhs string) map[string]any {
	return map[string]any{
		"IssueInstant": "2026-01-01T12:00:00.0000000Z",
		"NotAfter":     "2026-01-15T12:00:00.0000000Z",
		"Token":        token,
		"DisplayClaims": map[string]any{
			"xui": []map[string]string{{"uhs": uhs}},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAuthenticator wires an Authenticator against s with a fake clock and sleeper.
func newTestAuthenticator(t *testing.T, s *stubServer) (*auth.Authenticator, *fakeClock, *fakeSleeper) {
	t.Helper()
	clock := newFakeClock()
	sleeper := &fakeSleeper{clock: clock}
	a, err := auth.NewAuthenticator(
		auth.Config{ClientID: testClientID, Endpoints: s.Endpoints()},
		auth.WithHTTPClient(s.Client()),
		auth.WithClock(clock),
		auth.WithSleep(sleeper.Sleep),
		auth.WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("creating authenticator: %v", err)
	}
	return a, clock, sleeper
}
