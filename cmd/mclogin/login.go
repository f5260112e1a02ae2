package main

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/waabox/mclogin/internal/auth"
	"github.com/waabox/mclogin/internal/tui"
)

func newLoginCmd(a *app) *cobra.Command {
	var noTUI bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a Microsoft device code",
		Long: `Sign in with a Microsoft device code and store the resulting Minecraft credential.

The code is shown in an interactive view when stdout is a terminal. Use --no-tui
to print it to stderr instead. Press Ctrl-C to cancel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			authn, err := a.authenticator()
			if err != nil {
				return err
			}

			var cred auth.FederatedCredential
			if noTUI || !isTerminal(a.stdout) {
				cred, err = a.loginPlain(cmd.Context(), authn)
			} else {
				cred, err = tui.RunLogin(cmd.Context(), authn)
			}
			if err != nil {
				return err
			}

			if err := a.tokenManager(authn).Store(cred); err != nil {
				return fmt.Errorf("saving credential: %w", err)
			}
			a.logger.Info("credential stored", "player", cred.PlayerName, "config", a.configPath)
			fmt.Fprintf(a.stdout, "Logged in as %s (%s)\n", cred.PlayerName, cred.PlayerID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "print the sign-in code instead of opening the interactive view")
	return cmd
}

// loginPlain prints the challenge to stderr so stdout stays clean for piping.
func (a *app) loginPlain(ctx context.Context, authn *auth.Authenticator) (auth.FederatedCredential, error) {
	var s *spinner.Spinner
	cred, err := authn.AuthenticateByDeviceCode(ctx, func(c auth.DeviceCodeChallenge) {
		fmt.Fprintf(a.stderr, "Visit:      %s\n", c.VerificationURI)
		fmt.Fprintf(a.stderr, "Enter code: %s\n", c.UserCode)
		if !isTerminal(a.stderr) {
			fmt.Fprintln(a.stderr, "Waiting for authorization...")
			return
		}
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(a.stderr))
		s.Suffix = " Waiting for authorization..."
		s.Start()
	})
	if s != nil {
		s.Stop()
	}
	return cred, err
}
