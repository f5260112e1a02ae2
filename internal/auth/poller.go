package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/waabox/mclogin/internal/logging"
)

// slowDownStep is the RFC 8628 section 3.5 interval increase on slow_down.
const slowDownStep = 5 * time.Second

// pollState is the state of one polling loop.
type pollState int

const (
	statePending pollState = iota
	stateSuccess
	stateDenied
	stateExpired
	stateError
)

func (s pollState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateSuccess:
		return "success"
	case stateDenied:
		return "denied"
	case stateExpired:
		return "expired"
	default:
		return "error"
	}
}

// Poller waits for the user to complete a device code challenge.
// It is safe for concurrent use with different challenges.
type Poller struct {
	flow   *MicrosoftDeviceFlow
	clock  Clock
	sleep  SleepFunc
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewPoller creates a Poller. nil clock and sleep use the wall clock and Sleep.
func NewPoller(flow *MicrosoftDeviceFlow, clock Clock, sleep SleepFunc, logger *slog.Logger) *Poller {
	if clock == nil {
		clock = SystemClock()
	}
	if sleep == nil {
		sleep = Sleep
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		flow:     flow,
		clock:    clock,
		sleep:    sleep,
		logger:   logging.Subsystem(logger, "poller"),
		inFlight: make(map[string]struct{}),
	}
}

func (p *Poller) claim(deviceCode string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[deviceCode]; busy {
		return false
	}
	p.inFlight[deviceCode] = struct{}{}
	return true
}

func (p *Poller) release(deviceCode string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, deviceCode)
}

// Poll asks the token endpoint whether the user has authorized the challenge,
// waiting at least the challenge interval before every request, until a token is
// issued, the user declines, the challenge expires, or ctx is done.
func (p *Poller) Poll(ctx context.Context, clientID string, challenge DeviceCodeChallenge) (ProviderToken, error) {
	const op = "poll"
	if clientID == "" {
		return ProviderToken{}, newError(KindConfiguration, op, "client id is not set")
	}
	if challenge.DeviceCode == "" {
		return ProviderToken{}, newError(KindConfiguration, op, "challenge has no device code")
	}
	if challenge.IssuedAt.IsZero() {
		return ProviderToken{}, newError(KindConfiguration, op, "challenge has no issue time")
	}
	if !p.claim(challenge.DeviceCode) {
		return ProviderToken{}, newError(KindConfiguration, op, "polling already in progress for this device code")
	}
	defer p.release(challenge.DeviceCode)

	interval := challenge.IntervalDuration()
	deadline := challenge.ExpiresAt()
	attempt := 0

	for {
		if ctx.Err() != nil {
			return ProviderToken{}, cancelled(ctx, op)
		}
		remaining := deadline.Sub(p.clock.Now())
		if remaining <= 0 {
			p.transition(attempt, stateExpired)
			return ProviderToken{}, newError(KindTimeout, op, "device code expired before authorization")
		}

		wait := interval
		if wait > remaining {
			wait = remaining
		}
		if err := p.sleep(ctx, wait); err != nil {
			return ProviderToken{}, cancelled(ctx, op)
		}
		if ctx.Err() != nil {
			return ProviderToken{}, cancelled(ctx, op)
		}
		if challenge.Expired(p.clock.Now()) {
			p.transition(attempt, stateExpired)
			return ProviderToken{}, newError(KindTimeout, op, "device code expired before authorization")
		}

		attempt++
		res, err := p.flow.pollOnce(ctx, clientID, challenge.DeviceCode)
		if err != nil {
			p.transition(attempt, stateError)
			return ProviderToken{}, err
		}

		switch res.Code {
		case "":
			p.transition(attempt, stateSuccess)
			return res.Token, nil
		case "authorization_pending":
			p.transition(attempt, statePending)
		case "slow_down":
			interval = slowDown(interval, res.Interval)
			p.logger.Debug("slow down requested", "interval", interval)
		case "authorization_declined", "access_denied":
			p.transition(attempt, stateDenied)
			return ProviderToken{}, &Error{Kind: KindDenied, Op: op, Code: res.Code, Message: "user declined the sign-in request"}
		case "expired_token", "code_expired":
			p.transition(attempt, stateExpired)
			return ProviderToken{}, &Error{Kind: KindTimeout, Op: op, Code: res.Code, Message: "device code expired before authorization"}
		case "invalid_client", "unauthorized_client":
			p.transition(attempt, stateError)
			return ProviderToken{}, &Error{Kind: KindConfiguration, Op: op, Code: res.Code, Message: "client is not allowed to use the device code flow"}
		default:
			p.transition(attempt, stateError)
			return ProviderToken{}, &Error{Kind: KindNetwork, Op: op, Code: res.Code, Message: "unexpected error from token endpoint"}
		}
	}
}

func (p *Poller) transition(attempt int, to pollState) {
	p.logger.Debug("poll state", "attempt", attempt, "state", to.String())
}

// slowDown returns the next interval: the server's suggestion when it is larger,
// otherwise the current interval plus five seconds.
func slowDown(current time.Duration, serverSeconds int) time.Duration {
	suggested := time.Duration(serverSeconds) * time.Second
	if suggested > current {
		return suggested
	}
	return current + slowDownStep
}
