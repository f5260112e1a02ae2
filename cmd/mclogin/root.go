package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/waabox/mclogin/internal/auth"
	"github.com/waabox/mclogin/internal/config"
	"github.com/waabox/mclogin/internal/logging"
)

// app carries the state shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	clientID   string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger

	// authOptions are applied after the defaults when the Authenticator is built.
	authOptions []auth.Option
	now         func() time.Time
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		logger: slog.Default(),
		now:    time.Now,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "mclogin",
		Short: "Sign in to Minecraft: Java Edition with a Microsoft account",
		Long: `mclogin signs in to Minecraft: Java Edition through the Microsoft device code flow,
stores the resulting credentials and keeps them fresh without asking you to sign in again.

Set the Azure application client id with --client-id, MCLOGIN_CLIENT_ID or
client_id in the config file before the first login.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.SetVersionTemplate(`{{printf "mclogin version %s\n" .Version}}`)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", config.DefaultConfigPath(), "config file")
	flags.StringVar(&a.clientID, "client-id", "", "Azure application client id (overrides the config file)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newLoginCmd(a),
		newRefreshCmd(a),
		newTokenCmd(a),
		newWhoamiCmd(a),
		newAccountsCmd(a),
		newLogoutCmd(a),
		newUseCmd(a),
	)
	return root
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %s\n", errorMessage(err))
	}
	return exitCode(err)
}

// load reads the config file and applies flag overrides. Flags beat env, env beats the file.
func (a *app) load() error {
	cfg, err := config.LoadFrom(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.clientID != "" {
		cfg.ClientID = a.clientID
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.logger = logging.Init(cfg.LogLevel, cfg.LogFormat, a.stderr)
	return nil
}

func (a *app) authenticator() (*auth.Authenticator, error) {
	opts := append([]auth.Option{auth.WithLogger(a.logger)}, a.authOptions...)
	return auth.NewAuthenticator(auth.Config{
		ClientID:  a.cfg.ClientID,
		Scopes:    a.cfg.Scopes,
		Endpoints: endpointsFromConfig(a.cfg.Endpoints),
	}, opts...)
}

func (a *app) tokenManager(authn *auth.Authenticator) *auth.TokenManager {
	return auth.NewTokenManager(authn, &a.cfg, a.configPath)
}

// findAccount resolves the optional player argument against the stored accounts.
func (a *app) findAccount(args []string) (config.Account, error) {
	name := playerArg(args)
	acc, ok := a.cfg.Find(name)
	if !ok {
		if name == "" {
			return config.Account{}, fmt.Errorf("%w: pass a player name or run: mclogin use", auth.ErrNoAccount)
		}
		return config.Account{}, fmt.Errorf("%w %q", auth.ErrNoAccount, name)
	}
	return acc, nil
}

func playerArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// endpointsFromConfig maps the config overrides; empty values fall back to production.
func endpointsFromConfig(e config.EndpointsConfig) auth.Endpoints {
	return auth.Endpoints{
		Microsoft: oauth2.Endpoint{
			DeviceAuthURL: e.DeviceCode,
			TokenURL:      e.Token,
			AuthStyle:     oauth2.AuthStyleInParams,
		},
		XboxUserAuth:     e.XboxUser,
		XSTSAuthorize:    e.XSTS,
		MinecraftLogin:   e.Login,
		MinecraftProfile: e.Profile,
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
