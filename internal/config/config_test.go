package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/waabox/mclogin/internal/config"
)

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
client_id = "00000000-0000-0000-0000-000000000001"
scopes = ["XboxLive.signin", "offline_access"]
log_level = "debug"

[endpoints]
xsts = "https://xsts.example.com/xsts/authorize"

[[accounts]]
player_name = "Notch"
player_id = "069a79f4-44e9-4726-a5be-fca90e38aaf5"
access_token = "mc-token"
refresh_token = "ms-refresh"
obtained_at = 2026-01-02T03:04:05Z
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ClientID != "00000000-0000-0000-0000-000000000001" {
		t.Errorf("unexpected client id '%s'", cfg.ClientID)
	}
	if len(cfg.Scopes) != 2 || cfg.Scopes[1] != "offline_access" {
		t.Errorf("unexpected scopes %v", cfg.Scopes)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.LogLevel)
	}
	if cfg.Endpoints.XSTS != "https://xsts.example.com/xsts/authorize" {
		t.Errorf("unexpected xsts endpoint '%s'", cfg.Endpoints.XSTS)
	}
	if len(cfg.Accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(cfg.Accounts))
	}
	acc := cfg.Accounts[0]
	if acc.PlayerName != "Notch" || acc.RefreshToken != "ms-refresh" {
		t.Errorf("unexpected account %+v", acc)
	}
	if !acc.ObtainedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("unexpected obtained_at %v", acc.ObtainedAt)
	}
}

func TestLoad_EnvVarsTakePrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
client_id = "from-file"
log_level = "info"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MCLOGIN_CLIENT_ID", "from-env")
	t.Setenv("MCLOGIN_LOG_LEVEL", "warn")
	t.Setenv("MCLOGIN_LOG_FORMAT", "json")

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ClientID != "from-env" {
		t.Errorf("expected env client id 'from-env', got '%s'", cfg.ClientID)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected env log level 'warn', got '%s'", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected env log format 'json', got '%s'", cfg.LogFormat)
	}
}

func TestLoad_MissingFileIsNotError(t *testing.T) {
	t.Setenv("MCLOGIN_CLIENT_ID", "only-env")
	cfg, err := config.LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("missing file should not be an error, got: %v", err)
	}
	if cfg.ClientID != "only-env" {
		t.Errorf("expected client id from env, got '%s'", cfg.ClientID)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configPath, []byte("client_id = "), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadFrom(configPath); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "nested", "config.toml")
	obtained := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	cfg := config.Config{ClientID: "client"}
	cfg.Upsert(config.Account{
		PlayerName:   "Alex",
		PlayerID:     "853c80ef-3c37-49fd-aa49-938b674adae6",
		AccessToken:  "access",
		RefreshToken: "refresh",
		ObtainedAt:   obtained,
		ExpiresAt:    obtained.Add(24 * time.Hour),
	})

	if err := config.Save(configPath, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected permissions 0600, got %o", perm)
	}

	loaded, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.ClientID != "client" {
		t.Errorf("expected client id 'client', got '%s'", loaded.ClientID)
	}
	if loaded.Default != "Alex" {
		t.Errorf("expected default account 'Alex', got '%s'", loaded.Default)
	}
	acc, ok := loaded.Find("alex")
	if !ok {
		t.Fatal("expected account to be found case-insensitively")
	}
	if !acc.ExpiresAt.Equal(obtained.Add(24 * time.Hour)) {
		t.Errorf("unexpected expires_at %v", acc.ExpiresAt)
	}
}

func TestUpsert_ReplacesSamePlayerID(t *testing.T) {
	var cfg config.Config
	cfg.Upsert(config.Account{PlayerName: "Old", PlayerID: "id-1", AccessToken: "a"})
	cfg.Upsert(config.Account{PlayerName: "New", PlayerID: "id-1", AccessToken: "b"})

	if len(cfg.Accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(cfg.Accounts))
	}
	if cfg.Accounts[0].AccessToken != "b" {
		t.Errorf("expected replaced token 'b', got '%s'", cfg.Accounts[0].AccessToken)
	}
	if cfg.Default != "New" {
		t.Errorf("expected default to follow rename, got '%s'", cfg.Default)
	}
}

func TestFind_EmptyNameUsesDefault(t *testing.T) {
	var cfg config.Config
	cfg.Upsert(config.Account{PlayerName: "First", PlayerID: "1"})
	cfg.Upsert(config.Account{PlayerName: "Second", PlayerID: "2"})

	acc, ok := cfg.Find("")
	if !ok || acc.PlayerName != "First" {
		t.Errorf("expected default account 'First', got %+v (found=%v)", acc, ok)
	}

	cfg.Default = ""
	if _, ok := cfg.Find(""); ok {
		t.Error("expected no match without a default and with several accounts")
	}
}

func TestRemove(t *testing.T) {
	var cfg config.Config
	cfg.Upsert(config.Account{PlayerName: "First", PlayerID: "1"})
	cfg.Upsert(config.Account{PlayerName: "Second", PlayerID: "2"})

	if !cfg.Remove("first") {
		t.Fatal("expected account to be removed")
	}
	if cfg.Remove("first") {
		t.Error("second removal should report false")
	}
	if cfg.Default != "Second" {
		t.Errorf("expected default to move to 'Second', got '%s'", cfg.Default)
	}
}

func TestAccountExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if (config.Account{}).Expired(now) {
		t.Error("account without expiry should not be expired")
	}
	if !(config.Account{ExpiresAt: now}).Expired(now) {
		t.Error("account expiring now should be expired")
	}
	if (config.Account{ExpiresAt: now.Add(time.Minute)}).Expired(now) {
		t.Error("account expiring later should not be expired")
	}
}
