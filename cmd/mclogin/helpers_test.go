package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/waabox/mclogin/internal/auth"
	"github.com/waabox/mclogin/internal/config"
)

const (
	testPlayerID   = "069a79f4-44e9-4726-a5be-fca90e38aaf5"
	testPlayerName = "Notch"
)

// loginServer answers every endpoint of the login flow with success.
// Token and Profile can be replaced per test before the first request.
type loginServer struct {
	*httptest.Server

	Token   http.HandlerFunc
	Profile http.HandlerFunc

	mu    sync.Mutex
	calls map[string]int
}

func newLoginServer(t *testing.T) *loginServer {
	t.Helper()
	s := &loginServer{calls: make(map[string]int)}
	s.Token = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"token_type":    "Bearer",
			"access_token":  "ms_access",
			"refresh_token": "ms_refresh",
			"expires_in":    3600,
		})
	}
	s.Profile = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "069a79f444e94726a5befca90e38aaf5", "name": testPlayerName})
	}
	xbox := func(token string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"Token":         token,
				"DisplayClaims": map[string]any{"xui": []map[string]string{{"uhs": "uhs123"}}},
			})
		}
	}

	mux := http.NewServeMux()
	route := func(path string, h func() http.HandlerFunc) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.calls[path]++
			s.mu.Unlock()
			h()(w, r)
		})
	}
	route("/devicecode", func() http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"device_code":      "dev_abc",
				"user_code":        "ABCD-1234",
				"verification_uri": "https://www.microsoft.com/link",
				"expires_in":       900,
				"interval":         5,
			})
		}
	})
	route("/token", func() http.HandlerFunc { return s.Token })
	route("/xbl", func() http.HandlerFunc { return xbox("xbl_token") })
	route("/xsts", func() http.HandlerFunc { return xbox("xsts_token") })
	route("/login", func() http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"access_token": "mc_access", "token_type": "Bearer", "expires_in": 86400})
		}
	})
	route("/profile", func() http.HandlerFunc { return s.Profile })

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *loginServer) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *loginServer) EndpointsConfig() config.EndpointsConfig {
	return config.EndpointsConfig{
		DeviceCode: s.URL + "/devicecode",
		Token:      s.URL + "/token",
		XboxUser:   s.URL + "/xbl",
		XSTS:       s.URL + "/xsts",
		Login:      s.URL + "/login",
		Profile:    s.URL + "/profile",
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// testApp runs the command line against a config file in a temp dir.
type testApp struct {
	*app
	path   string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newTestApp seeds the config file with cfg and points the endpoints at s when s is not nil.
func newTestApp(t *testing.T, s *loginServer, cfg config.Config) *testApp {
	t.Helper()
	t.Setenv("MCLOGIN_CLIENT_ID", "")
	t.Setenv("MCLOGIN_LOG_LEVEL", "")
	t.Setenv("MCLOGIN_LOG_FORMAT", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	if s != nil {
		cfg.Endpoints = s.EndpointsConfig()
	}
	if err := config.Save(path, cfg); err != nil {
		t.Fatalf("seeding config: %v", err)
	}

	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	a.authOptions = []auth.Option{
		auth.WithSleep(func(ctx context.Context, d time.Duration) error { return ctx.Err() }),
	}
	return &testApp{app: a, path: path, stdout: &stdout, stderr: &stderr}
}

func (ta *testApp) run(args ...string) int {
	return execute(context.Background(), ta.app, append([]string{"--config", ta.path}, args...))
}

func (ta *testApp) saved(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(ta.path)
	if err != nil {
		t.Fatalf("loading saved config: %v", err)
	}
	return cfg
}

func storedAccount(accessToken string, expiresAt time.Time) config.Account {
	return config.Account{
		PlayerName:   testPlayerName,
		PlayerID:     testPlayerID,
		AccessToken:  accessToken,
		RefreshToken: "stored_refresh",
		ObtainedAt:   time.Now().Add(-time.Hour),
		ExpiresAt:    expiresAt,
	}
}
