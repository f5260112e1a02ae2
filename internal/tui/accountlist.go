package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/waabox/mclogin/internal/config"
)

// AccountListModel is an immutable Bubbletea-compatible model for the stored account list.
type AccountListModel struct {
	accounts []config.Account
	cursor   int
	now      time.Time
}

// NewAccountListModel creates an account list model. now is used to render expiry.
func NewAccountListModel(accounts []config.Account, now time.Time) AccountListModel {
	return AccountListModel{accounts: accounts, cursor: 0, now: now}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m AccountListModel) MoveDown() AccountListModel {
	if m.cursor < len(m.accounts)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m AccountListModel) MoveUp() AccountListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// SelectedIndex returns the current cursor position.
func (m AccountListModel) SelectedIndex() int {
	return m.cursor
}

// SelectedAccount returns the currently highlighted account.
// Returns zero-value Account if the list is empty.
func (m AccountListModel) SelectedAccount() config.Account {
	if len(m.accounts) == 0 {
		return config.Account{}
	}
	return m.accounts[m.cursor]
}

// View renders the account list as a string.
func (m AccountListModel) View() string {
	if len(m.accounts) == 0 {
		return "No stored accounts. Run 'mclogin login' first."
	}
	var sb strings.Builder
	for i, a := range m.accounts {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%s %-16s %s  %s\n",
			prefix,
			statusIcon(a, m.now),
			truncate(a.PlayerName, 16),
			a.PlayerID,
			formatExpiry(a.ExpiresAt, m.now),
		))
	}
	return sb.String()
}

func statusIcon(a config.Account, now time.Time) string {
	switch {
	case a.ExpiresAt.IsZero():
		return "?"
	case a.Expired(now):
		return "✗"
	default:
		return "✓"
	}
}

func formatExpiry(t, now time.Time) string {
	if t.IsZero() {
		return "--"
	}
	d := t.Sub(now)
	if d <= 0 {
		return "expired " + formatDuration(-d) + " ago"
	}
	return "expires in " + formatDuration(d)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
