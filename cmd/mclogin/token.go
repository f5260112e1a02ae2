package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waabox/mclogin/internal/auth"
	"github.com/waabox/mclogin/internal/profile"
)

func newTokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token [player]",
		Short: "Print a valid Minecraft access token",
		Long: `Print the Minecraft access token of a stored account to stdout.
An expired token is refreshed and saved first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acc, err := a.findAccount(args)
			if err != nil {
				return err
			}
			authn, err := a.authenticator()
			if err != nil {
				return err
			}
			tm := a.tokenManager(authn)

			src := authn.TokenSource(cmd.Context(), auth.CredentialFromAccount(acc), func(cred auth.FederatedCredential) {
				if err := tm.Store(cred); err != nil {
					a.logger.Warn("refreshed credential was not saved", "player", cred.PlayerName, "error", err)
				}
			})
			tok, err := src.Token()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, tok.AccessToken)
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami [player]",
		Short: "Show the Minecraft profile behind a stored account",
		Long: `Fetch the profile of a stored account from the Minecraft services.
A rejected token is refreshed once and the request retried.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acc, err := a.findAccount(args)
			if err != nil {
				return err
			}
			authn, err := a.authenticator()
			if err != nil {
				return err
			}
			tm := a.tokenManager(authn)

			fetcher := profile.NewRefreshingFetcher(authn, acc.PlayerName, acc.AccessToken, func(ctx context.Context) (string, error) {
				refreshed, err := tm.Refresh(ctx, acc.PlayerName)
				if err != nil && refreshed.AccessToken == "" {
					return "", err
				}
				if err != nil {
					a.logger.Warn("refreshed credential was not saved", "error", err)
				}
				return refreshed.AccessToken, nil
			})
			p, err := fetcher.Profile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Name: %s\nUUID: %s\n", p.Name, p.ID)
			return nil
		},
	}
}
