package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/mclogin/internal/auth"
)

// ChallengeMsg is sent when the device code has been issued.
// It is exported so that tests can inject it directly into LoginModel.Update.
type ChallengeMsg struct {
	Challenge auth.DeviceCodeChallenge
}

// DoneMsg is sent when the login attempt finished, successfully or not.
type DoneMsg struct {
	Credential auth.FederatedCredential
	Err        error
}

// DeviceCodeAuthenticator runs a device code login. *auth.Authenticator satisfies it.
type DeviceCodeAuthenticator interface {
	AuthenticateByDeviceCode(ctx context.Context, onChallenge func(auth.DeviceCodeChallenge)) (auth.FederatedCredential, error)
}

// loginState indicates where the login attempt is.
type loginState int

const (
	stateRequesting loginState = iota
	stateWaiting
	stateDone
	stateFailed
)

// LoginModel shows the device code and waits for the attempt to finish.
type LoginModel struct {
	state     loginState
	challenge auth.DeviceCodeChallenge
	cred      auth.FederatedCredential
	err       error
	spinner   spinner.Model
	cancel    context.CancelFunc
	quitting  bool
}

// NewLoginModel creates the login model. cancel is called when the user quits early.
func NewLoginModel(cancel context.CancelFunc) LoginModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return LoginModel{
		state:   stateRequesting,
		spinner: s,
		cancel:  cancel,
	}
}

// Init starts the spinner.
func (m LoginModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles login progress messages and key events.
func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case ChallengeMsg:
		m.challenge = msg.Challenge
		m.state = stateWaiting
		return m, nil

	case DoneMsg:
		m.cred = msg.Credential
		m.err = msg.Err
		if msg.Err != nil {
			m.state = stateFailed
		} else {
			m.state = stateDone
		}
		return m, tea.Quit

	case spinner.TickMsg:
		if m.state == stateDone || m.state == stateFailed {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

// Result returns the outcome once the model has quit.
// An early quit by the user reports auth.ErrCancelled.
func (m LoginModel) Result() (auth.FederatedCredential, error) {
	switch m.state {
	case stateDone:
		return m.cred, nil
	case stateFailed:
		return auth.FederatedCredential{}, m.err
	default:
		return auth.FederatedCredential{}, &auth.Error{Kind: auth.KindCancelled, Op: "login", Message: "quit before completion"}
	}
}

// View renders the login screen.
func (m LoginModel) View() string {
	header := titleStyle.Render(" mclogin | Microsoft sign-in") + "\n"

	var body string
	switch m.state {
	case stateRequesting:
		body = fmt.Sprintf("\n %s Requesting a sign-in code...\n\n", m.spinner.View())
	case stateWaiting:
		body = fmt.Sprintf(
			"\n Open  %s\n and enter the code:\n\n%s\n\n %s Waiting for authorization (code expires at %s)...\n\n",
			linkStyle.Render(m.challenge.VerificationURI),
			indent(codeStyle.Render(m.challenge.UserCode)),
			m.spinner.View(),
			m.challenge.ExpiresAt().Local().Format("15:04:05"))
	case stateDone:
		body = okStyle.Render(fmt.Sprintf("\n Logged in as %s (%s)\n", m.cred.PlayerName, m.cred.PlayerID)) + "\n"
	case stateFailed:
		if errors.Is(m.err, auth.ErrCancelled) {
			body = "\n Login cancelled.\n\n"
		} else {
			body = errorStyle.Render("\n "+auth.UserMessage(m.err)) + "\n\n"
		}
	}

	footer := dimStyle.Render(" q/esc: cancel") + "\n"
	if m.state == stateDone || m.state == stateFailed {
		return header + separator + body
	}
	return header + separator + body + separator + footer
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = " " + l
	}
	return strings.Join(lines, "\n")
}

// RunLogin runs a device code login behind the login screen and returns its result.
func RunLogin(ctx context.Context, a DeviceCodeAuthenticator, opts ...tea.ProgramOption) (auth.FederatedCredential, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewLoginModel(cancel), opts...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		cred, err := a.AuthenticateByDeviceCode(ctx, func(c auth.DeviceCodeChallenge) {
			p.Send(ChallengeMsg{Challenge: c})
		})
		p.Send(DoneMsg{Credential: cred, Err: err})
	}()

	final, err := p.Run()
	cancel()
	<-done
	if err != nil {
		return auth.FederatedCredential{}, fmt.Errorf("running login screen: %w", err)
	}
	return final.(LoginModel).Result()
}
