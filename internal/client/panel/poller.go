package panel

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/atinyakov/ArenaPanel/internal/models"
)

// Poller fetches the competition status once immediately, then on a fixed
// interval, handing every result to its callbacks. Only one run exists at a
// time: Start stops any previous run, and Stop must be called on logout so
// no timer keeps firing against a cleared credential.
type Poller struct {
	interval time.Duration
	clock    clockwork.Clock
	log      *zap.Logger

	fetch   func(context.Context) (*models.Competition, error)
	publish func(*models.Competition)
	fail    func(error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	kick   chan struct{}
}

// NewPoller returns a stopped poller. publish receives each fetched state;
// fail receives each fetch error (the caller classifies it).
func NewPoller(
	interval time.Duration,
	clock clockwork.Clock,
	log *zap.Logger,
	fetch func(context.Context) (*models.Competition, error),
	publish func(*models.Competition),
	fail func(error),
) *Poller {
	return &Poller{
		interval: interval,
		clock:    clock,
		log:      log,
		fetch:    fetch,
		publish:  publish,
		fail:     fail,
	}
}

// Start launches the poll loop, replacing any previous run. The first fetch
// happens immediately, before the first interval elapses.
func (p *Poller) Start(ctx context.Context) {
	p.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	kick := make(chan struct{}, 1)

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.kick = kick
	p.mu.Unlock()

	go p.run(ctx, done, kick)
}

// Stop cancels the poll loop and waits for it to finish. Stopping a stopped
// poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done, p.kick = nil, nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Kick requests one immediate fetch, used right after a state-changing
// action. Redundant kicks collapse into one; kicking a stopped poller does
// nothing.
func (p *Poller) Kick() {
	p.mu.Lock()
	kick := p.kick
	p.mu.Unlock()

	if kick == nil {
		return
	}
	select {
	case kick <- struct{}{}:
	default:
	}
}

func (p *Poller) run(ctx context.Context, done chan struct{}, kick chan struct{}) {
	defer close(done)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	if ctx.Err() != nil {
		return
	}
	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.poll(ctx)
		case <-kick:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	state, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.log.Warn("status poll failed", zap.Error(err))
		p.fail(err)
		return
	}
	p.publish(state)
}
