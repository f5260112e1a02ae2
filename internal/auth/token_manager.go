package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/waabox/mclogin/internal/config"
)

// maxConcurrentRefresh bounds RefreshAll.
const maxConcurrentRefresh = 4

// ErrNoAccount is returned when no stored account matches the requested player.
var ErrNoAccount = errors.New("no stored account")

// Refresher obtains a new credential from a stored refresh token. *Authenticator satisfies it.
type Refresher interface {
	RefreshExisting(ctx context.Context, refreshToken string) (FederatedCredential, error)
}

// AccountFromCredential converts a credential into its stored form.
func AccountFromCredential(cred FederatedCredential) config.Account {
	return config.Account{
		PlayerName:   cred.PlayerName,
		PlayerID:     cred.PlayerID.String(),
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		ObtainedAt:   cred.ObtainedAt,
		ExpiresAt:    cred.ExpiresAt,
	}
}

// CredentialFromAccount converts a stored account back into a credential.
// An unparsable player id yields uuid.Nil.
func CredentialFromAccount(acc config.Account) FederatedCredential {
	id, err := uuid.Parse(acc.PlayerID)
	if err != nil {
		id = uuid.Nil
	}
	return FederatedCredential{
		PlayerName:   acc.PlayerName,
		PlayerID:     id,
		AccessToken:  acc.AccessToken,
		RefreshToken: acc.RefreshToken,
		ObtainedAt:   acc.ObtainedAt,
		ExpiresAt:    acc.ExpiresAt,
	}
}

// TokenManager handles silent credential refresh and config persistence.
type TokenManager struct {
	refresher  Refresher
	cfg        *config.Config
	configPath string
	mu         sync.Mutex

	// refreshes collapses concurrent refreshes of one account. Refresh tokens rotate.
	refreshes singleflight.Group
}

// NewTokenManager creates a TokenManager.
// Pass an empty configPath to keep changes in memory only.
func NewTokenManager(refresher Refresher, cfg *config.Config, configPath string) *TokenManager {
	return &TokenManager{
		refresher:  refresher,
		cfg:        cfg,
		configPath: configPath,
	}
}

// Store saves a freshly obtained credential and persists the config.
func (tm *TokenManager) Store(cred FederatedCredential) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.cfg.Upsert(AccountFromCredential(cred))
	return tm.saveLocked()
}

// Refresh refreshes the stored account named player (empty selects the default account).
// On success, it updates the config in memory and persists it to disk.
// Concurrent calls for the same account share one exchange.
func (tm *TokenManager) Refresh(ctx context.Context, player string) (config.Account, error) {
	tm.mu.Lock()
	acc, ok := tm.cfg.Find(player)
	tm.mu.Unlock()
	if !ok {
		return config.Account{}, fmt.Errorf("%w %q", ErrNoAccount, player)
	}

	v, err, _ := tm.refreshes.Do(acc.PlayerID, func() (any, error) {
		return tm.refreshAccount(ctx, acc)
	})
	updated, _ := v.(config.Account)
	return updated, err
}

func (tm *TokenManager) refreshAccount(ctx context.Context, acc config.Account) (config.Account, error) {
	cred, err := tm.refresher.RefreshExisting(ctx, acc.RefreshToken)
	if err != nil {
		return config.Account{}, fmt.Errorf("refreshing %s: %w", acc.PlayerName, err)
	}
	updated := AccountFromCredential(cred)

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.cfg.Upsert(updated)
	if saveErr := tm.saveLocked(); saveErr != nil {
		// Credential refreshed in memory but save failed -- still usable for this session.
		return updated, fmt.Errorf("token refreshed but failed to save config: %w", saveErr)
	}
	return updated, nil
}

// RefreshResult is the outcome of refreshing one account in RefreshAll.
type RefreshResult struct {
	Player  string
	Account config.Account
	Err     error
}

// RefreshAll refreshes every stored account concurrently and persists the config once.
// A failing account does not stop the others; its error is reported in its result.
func (tm *TokenManager) RefreshAll(ctx context.Context) ([]RefreshResult, error) {
	tm.mu.Lock()
	accounts := make([]config.Account, len(tm.cfg.Accounts))
	copy(accounts, tm.cfg.Accounts)
	tm.mu.Unlock()

	results := make([]RefreshResult, len(accounts))
	var g errgroup.Group
	g.SetLimit(maxConcurrentRefresh)
	for i, acc := range accounts {
		g.Go(func() error {
			results[i] = RefreshResult{Player: acc.PlayerName}
			cred, err := tm.refresher.RefreshExisting(ctx, acc.RefreshToken)
			if err != nil {
				results[i].Err = err
				return nil
			}
			updated := AccountFromCredential(cred)
			results[i].Account = updated

			tm.mu.Lock()
			tm.cfg.Upsert(updated)
			tm.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	tm.mu.Lock()
	defer tm.mu.Unlock()
	if err := tm.saveLocked(); err != nil {
		return results, fmt.Errorf("saving refreshed accounts: %w", err)
	}
	return results, nil
}

func (tm *TokenManager) saveLocked() error {
	if tm.configPath == "" {
		return nil
	}
	return config.Save(tm.configPath, *tm.cfg)
}

// Config returns the current config pointer.
func (tm *TokenManager) Config() *config.Config {
	return tm.cfg
}

// ConfigPath returns the config file path.
func (tm *TokenManager) ConfigPath() string {
	return tm.configPath
}
