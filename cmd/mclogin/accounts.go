package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/waabox/mclogin/internal/auth"
	"github.com/waabox/mclogin/internal/config"
	"github.com/waabox/mclogin/internal/tui"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func newAccountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List stored accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.Accounts) == 0 {
				fmt.Fprintln(a.stdout, "No stored accounts. Run: mclogin login")
				return nil
			}
			now := a.now()
			t := newTable(a.stdout)
			t.AppendHeader(table.Row{"", "PLAYER", "UUID", "TOKEN"})
			for _, acc := range a.cfg.Accounts {
				marker := ""
				if a.isDefault(acc) {
					marker = "*"
				}
				status := describeExpiry(acc.ExpiresAt, now)
				if acc.Expired(now) {
					status = text.FgYellow.Sprint(status)
				}
				t.AppendRow(table.Row{marker, acc.PlayerName, acc.PlayerID, status})
			}
			t.Render()
			return nil
		},
	}
}

func (a *app) isDefault(acc config.Account) bool {
	def, ok := a.cfg.Find("")
	return ok && def.PlayerID == acc.PlayerID
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout <player>",
		Short: "Forget a stored account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Remove(args[0]) {
				return fmt.Errorf("%w %q", auth.ErrNoAccount, args[0])
			}
			if err := config.Save(a.configPath, a.cfg); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Fprintf(a.stdout, "Removed %s\n", args[0])
			return nil
		},
	}
}

func newUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use [player]",
		Short: "Choose the default account",
		Long: `Make a stored account the default for token, refresh and whoami.
Without a player an account picker is shown when stdout is a terminal.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var acc config.Account
			if len(args) == 1 {
				found, ok := a.cfg.Find(args[0])
				if !ok {
					return fmt.Errorf("%w %q", auth.ErrNoAccount, args[0])
				}
				acc = found
			} else {
				if !isTerminal(a.stdout) {
					return fmt.Errorf("a player name is required when not running in a terminal")
				}
				if len(a.cfg.Accounts) == 0 {
					return fmt.Errorf("%w: nothing to choose from", auth.ErrNoAccount)
				}
				picked, ok, err := tui.RunPicker("choose the default account", a.cfg.Accounts)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				acc = picked
			}

			a.cfg.Default = acc.PlayerName
			if err := config.Save(a.configPath, a.cfg); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Fprintf(a.stdout, "Default account is now %s\n", acc.PlayerName)
			return nil
		},
	}
}
