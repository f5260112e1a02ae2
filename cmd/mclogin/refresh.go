package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/waabox/mclogin/internal/auth"
	"github.com/waabox/mclogin/internal/logging"
)

func newRefreshCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "refresh [player]",
		Short: "Refresh stored credentials without signing in again",
		Long: `Redeem the stored Microsoft refresh token and run the Xbox Live and Minecraft
exchanges again. Without a player the default account is refreshed.

Examples:
  mclogin refresh          # refresh the default account
  mclogin refresh Notch    # refresh one account
  mclogin refresh --all    # refresh every stored account`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return fmt.Errorf("--all does not take a player name")
			}
			authn, err := a.authenticator()
			if err != nil {
				return err
			}
			tm := a.tokenManager(authn)
			if all {
				return a.refreshAll(cmd.Context(), tm)
			}

			acc, err := tm.Refresh(cmd.Context(), playerArg(args))
			if err != nil && acc.AccessToken == "" {
				return err
			}
			if err != nil {
				a.logger.Warn("refreshed credential was not saved", "error", err)
			}
			a.logger.Debug("refreshed", "player", acc.PlayerName, "token", logging.Redacted(acc.AccessToken))
			fmt.Fprintf(a.stdout, "Refreshed %s, token %s\n", acc.PlayerName, describeExpiry(acc.ExpiresAt, a.now()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "refresh every stored account")
	return cmd
}

func (a *app) refreshAll(ctx context.Context, tm *auth.TokenManager) error {
	results, err := tm.RefreshAll(ctx)
	if len(results) == 0 && err == nil {
		fmt.Fprintln(a.stdout, "No stored accounts.")
		return nil
	}

	t := newTable(a.stdout)
	t.AppendHeader(table.Row{"PLAYER", "STATUS", "TOKEN"})
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			t.AppendRow(table.Row{r.Player, text.FgRed.Sprint("failed"), auth.UserMessage(r.Err)})
			continue
		}
		t.AppendRow(table.Row{r.Player, text.FgGreen.Sprint("refreshed"), describeExpiry(r.Account.ExpiresAt, a.now())})
	}
	t.Render()

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed to refresh", failed, len(results))
	}
	return nil
}

// describeExpiry renders how long a token stays valid.
func describeExpiry(expiresAt, now time.Time) string {
	if expiresAt.IsZero() {
		return "expiry unknown"
	}
	d := expiresAt.Sub(now).Round(time.Minute)
	if d <= 0 {
		return "expired"
	}
	return fmt.Sprintf("valid for %s", d)
}
