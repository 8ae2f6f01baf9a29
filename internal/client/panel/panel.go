// Package panel implements the admin control panel: the login state
// machine, the status poller, the countdown and the control-enablement
// policy. It drives the API client and the session store, and pushes
// everything user-facing through the View interface.
package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/atinyakov/ArenaPanel/internal/client/api"
	"github.com/atinyakov/ArenaPanel/internal/client/session"
	"github.com/atinyakov/ArenaPanel/internal/models"
)

// State is the authentication state of the panel.
type State int

const (
	StateLoggedOut State = iota
	StateAuthenticating
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateAuthenticating:
		return "authenticating"
	case StateLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// Client is the slice of the admin API the panel depends on.
type Client interface {
	SetAPIKey(key string)
	CheckAuth(ctx context.Context) error
	FetchStatus(ctx context.Context) (*models.Competition, error)
	Start(ctx context.Context, durationDays int) (string, error)
	Reset(ctx context.Context) (string, error)
}

// Config carries the panel's collaborators. Client, Store, View and Confirm
// are required; the rest default to production values.
type Config struct {
	Client  Client
	Store   *session.Store
	View    View
	Confirm Confirmer

	Clock        clockwork.Clock // defaults to the real clock
	Logger       *zap.Logger     // defaults to a no-op logger
	PollInterval time.Duration   // defaults to 30s
	TickInterval time.Duration   // defaults to 1s
}

// Panel owns the whole client-side session: the credential, the last known
// competition state and both timers. One Panel is created per process; Close
// releases its timers on teardown.
type Panel struct {
	client  Client
	store   *session.Store
	view    View
	confirm Confirmer
	clock   clockwork.Clock
	log     *zap.Logger

	poller    *Poller
	countdown *Countdown

	mu         sync.Mutex
	state      State
	current    *models.Competition
	controls   Controls
	inFlight   bool
	countEnd   int64 // end time the countdown currently targets, 0 for none
	expiredEnd int64 // last end time whose expiry already forced a refetch
	sessCtx    context.Context
	sessCancel context.CancelFunc
}

// New assembles a panel in the LoggedOut state.
func New(cfg Config) *Panel {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}

	p := &Panel{
		client:  cfg.Client,
		store:   cfg.Store,
		view:    cfg.View,
		confirm: cfg.Confirm,
		clock:   cfg.Clock,
		log:     cfg.Logger,
	}
	p.poller = NewPoller(cfg.PollInterval, cfg.Clock, cfg.Logger,
		p.client.FetchStatus, p.applyStatus, p.onPollError)
	p.countdown = NewCountdown(cfg.TickInterval, cfg.Clock, cfg.Logger,
		p.view.UpdateCountdown, p.onCountdownExpired)
	return p
}

// Restore loads a previously saved API key and logs in with it. It returns
// false when no session was stored.
func (p *Panel) Restore(ctx context.Context) (bool, error) {
	key, err := p.store.Load()
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if key == "" {
		return false, nil
	}
	if err := p.Login(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// Login verifies the API key and, on success, persists it and starts the
// status poller. The poller's first fetch is immediate, so entering the
// logged-in state issues exactly one status fetch before the interval
// schedule takes over.
func (p *Panel) Login(ctx context.Context, key string) error {
	p.mu.Lock()
	if p.state != StateLoggedOut {
		p.mu.Unlock()
		return errors.New("already logged in")
	}
	p.state = StateAuthenticating
	p.mu.Unlock()

	p.client.SetAPIKey(key)
	err := p.client.CheckAuth(ctx)
	switch {
	case errors.Is(err, api.ErrInvalidCredential):
		p.client.SetAPIKey("")
		if clearErr := p.store.Clear(); clearErr != nil {
			p.log.Warn("failed to clear session", zap.Error(clearErr))
		}
		p.setState(StateLoggedOut)
		p.view.ShowError("invalid password")
		return err
	case err != nil:
		// Indeterminate: the credential may be fine, but it is
		// discarded and the operator retries.
		p.client.SetAPIKey("")
		p.setState(StateLoggedOut)
		p.view.ShowError("could not reach the server, please try again")
		return err
	}

	if err := p.store.Save(key); err != nil {
		p.log.Warn("failed to persist session", zap.Error(err))
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.state = StateLoggedIn
	p.sessCtx = sessCtx
	p.sessCancel = cancel
	p.mu.Unlock()

	p.log.Info("logged in")
	p.view.ShowMessage("logged in")
	p.poller.Start(sessCtx)
	return nil
}

// Logout ends the session: both timers stop and the credential is cleared.
func (p *Panel) Logout() {
	if !p.endSession(true) {
		return
	}
	p.log.Info("logged out")
	p.view.ShowMessage("logged out")
}

// forceLogout ends the session after the server invalidated it. It never
// blocks on the poller, because it may be called from the poll loop itself.
func (p *Panel) forceLogout(reason string) {
	if !p.endSession(false) {
		return
	}
	p.log.Warn("session invalidated", zap.String("reason", reason))
	p.view.ShowError(reason)
}

// endSession moves the panel to LoggedOut and releases session resources.
// When wait is true the poller is stopped synchronously; otherwise the
// session context cancellation winds it down.
func (p *Panel) endSession(wait bool) bool {
	p.mu.Lock()
	if p.state != StateLoggedIn {
		p.mu.Unlock()
		return false
	}
	p.state = StateLoggedOut
	cancel := p.sessCancel
	p.sessCtx, p.sessCancel = nil, nil
	p.current = nil
	p.controls = Controls{}
	p.inFlight = false
	p.countEnd = 0
	p.expiredEnd = 0
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wait {
		p.poller.Stop()
	}
	p.countdown.Stop()

	p.client.SetAPIKey("")
	if err := p.store.Clear(); err != nil {
		p.log.Warn("failed to clear session", zap.Error(err))
	}
	p.view.UpdateControls(Controls{})
	p.view.UpdateCountdown(Remaining{})
	return true
}

// Close releases both timers on process teardown. Unlike Logout it keeps
// the stored credential, so the next run restores the session.
func (p *Panel) Close() {
	p.mu.Lock()
	cancel := p.sessCancel
	p.sessCtx, p.sessCancel = nil, nil
	p.state = StateLoggedOut
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.poller.Stop()
	p.countdown.Stop()
}

// Start asks the server to start a competition after an explicit
// confirmation. Start controls are disabled for the duration of the call to
// block duplicate submissions; on failure they are restored from the last
// known state. On success the new state is picked up by an immediate poll —
// until that poll lands, the controls reflect the previous status, which is
// the documented behavior.
func (p *Panel) Start(ctx context.Context, durationDays int) error {
	if !models.IsValidDuration(durationDays) {
		return fmt.Errorf("duration must be one of %v days", models.ValidDurations)
	}

	p.mu.Lock()
	if p.state != StateLoggedIn {
		p.mu.Unlock()
		return errors.New("not logged in")
	}
	if p.inFlight {
		p.mu.Unlock()
		return errors.New("another action is in progress")
	}
	if !p.controls.StartEnabled {
		p.mu.Unlock()
		return errors.New("a competition is already running")
	}
	p.mu.Unlock()

	if !p.confirm.Confirm(fmt.Sprintf("Start a new %d-day competition?", durationDays)) {
		p.view.ShowMessage("start cancelled")
		return nil
	}

	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return errors.New("another action is in progress")
	}
	p.inFlight = true
	disabled := Controls{StartEnabled: false, ResetEnabled: p.controls.ResetEnabled}
	p.mu.Unlock()
	p.view.UpdateControls(disabled)

	msg, err := p.client.Start(ctx, durationDays)

	p.mu.Lock()
	p.inFlight = false
	last := p.controls
	p.mu.Unlock()

	switch {
	case errors.Is(err, api.ErrSessionExpired):
		p.forceLogout("session expired, please log in again")
		return err
	case err != nil:
		p.view.UpdateControls(last)
		var ae *api.ActionError
		if errors.As(err, &ae) {
			p.view.ShowError(ae.Message)
		} else {
			p.view.ShowError("start failed: " + err.Error())
		}
		return err
	}

	if msg == "" {
		msg = "competition started"
	}
	p.view.ShowMessage(msg)
	p.poller.Kick()
	return nil
}

// Reset clears the competition after an explicit confirmation. The reset
// control is disabled during the call and re-enabled unconditionally when
// it completes, whatever the outcome; the next status refresh recomputes
// the real enablement.
func (p *Panel) Reset(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateLoggedIn {
		p.mu.Unlock()
		return errors.New("not logged in")
	}
	if p.inFlight {
		p.mu.Unlock()
		return errors.New("another action is in progress")
	}
	if !p.controls.ResetEnabled {
		p.mu.Unlock()
		return errors.New("nothing to reset")
	}
	p.mu.Unlock()

	if !p.confirm.Confirm("Reset the competition? This discards the current state.") {
		p.view.ShowMessage("reset cancelled")
		return nil
	}

	p.mu.Lock()
	p.inFlight = true
	disabled := Controls{StartEnabled: p.controls.StartEnabled, ResetEnabled: false}
	p.mu.Unlock()
	p.view.UpdateControls(disabled)

	defer func() {
		p.mu.Lock()
		p.inFlight = false
		restored := p.controls
		restored.ResetEnabled = true
		p.mu.Unlock()
		p.view.UpdateControls(restored)
	}()

	msg, err := p.client.Reset(ctx)
	switch {
	case errors.Is(err, api.ErrSessionExpired):
		p.forceLogout("session expired, please log in again")
		return err
	case err != nil:
		var ae *api.ActionError
		if errors.As(err, &ae) {
			p.view.ShowError(ae.Message)
		} else {
			p.view.ShowError("reset failed: " + err.Error())
		}
		return err
	}

	if msg == "" {
		msg = "competition reset"
	}
	p.view.ShowMessage(msg)
	p.poller.Kick()
	return nil
}

// applyStatus installs a freshly fetched competition state: it replaces the
// current state wholesale, recomputes control enablement and points the
// countdown at the (possibly new) end time.
func (p *Panel) applyStatus(comp *models.Competition) {
	p.mu.Lock()
	if p.state != StateLoggedIn {
		p.mu.Unlock()
		return
	}
	p.current = comp

	controls := Controls{
		StartEnabled: !(comp.IsActive && !comp.IsEnded),
		ResetEnabled: comp.IsActive || comp.IsEnded,
	}
	p.controls = controls

	var target int64
	if comp.IsActive && !comp.IsEnded && comp.EndTime != nil {
		target = *comp.EndTime
	}
	changed := target != p.countEnd
	p.countEnd = target
	sessCtx := p.sessCtx
	p.mu.Unlock()

	p.view.UpdateControls(controls)

	// An unchanged target is left alone: either the countdown is already
	// ticking toward it, or it expired and already forced its one
	// refetch; restarting it would fire the expiry again.
	if !changed {
		return
	}
	if target == 0 {
		p.countdown.Stop()
		p.view.UpdateCountdown(Remaining{})
		return
	}
	p.countdown.Start(sessCtx, target)
}

// onPollError classifies a failed status fetch. An expired session forces a
// logout; anything else is transient, the previous state stays on screen.
func (p *Panel) onPollError(err error) {
	if errors.Is(err, api.ErrSessionExpired) {
		p.forceLogout("session expired, please log in again")
		return
	}
	p.view.ShowError("status update failed, showing last known state")
}

// onCountdownExpired triggers one status refetch per expiry crossing. The
// server decides the actual end transition, not the client clock.
func (p *Panel) onCountdownExpired(endTime int64) {
	p.mu.Lock()
	if p.expiredEnd == endTime {
		p.mu.Unlock()
		return
	}
	p.expiredEnd = endTime
	p.mu.Unlock()
	p.poller.Kick()
}

func (p *Panel) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// State returns the current authentication state.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns a copy of the last known competition state, or nil before
// the first successful fetch.
func (p *Panel) Current() *models.Competition {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	comp := *p.current
	return &comp
}

// Controls returns the current control enablement.
func (p *Panel) Controls() Controls {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controls
}
