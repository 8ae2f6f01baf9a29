package panel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	msPerDay    = 86_400_000
	msPerHour   = 3_600_000
	msPerMinute = 60_000
	msPerSecond = 1_000
)

// Remaining is one countdown display frame.
type Remaining struct {
	// Active is false when there is nothing to count down to and the
	// view should show a placeholder.
	Active bool
	// Days, Hours, Minutes, Seconds are zero-padded to width 2.
	Days    string
	Hours   string
	Minutes string
	Seconds string
	// Closing is set when less than 24 hours remain. Presentational only.
	Closing bool
}

// remainingAt converts the distance between now and endTime (unix ms) into
// display fields. The second return value is true when endTime has passed;
// the fields are then clamped to zero.
func remainingAt(endTime int64, now time.Time) (Remaining, bool) {
	distance := endTime - now.UnixMilli()
	if distance < 0 {
		return Remaining{
			Active:  true,
			Days:    "00",
			Hours:   "00",
			Minutes: "00",
			Seconds: "00",
			Closing: true,
		}, true
	}

	days := distance / msPerDay
	hours := (distance % msPerDay) / msPerHour
	minutes := (distance % msPerHour) / msPerMinute
	seconds := (distance % msPerMinute) / msPerSecond

	return Remaining{
		Active:  true,
		Days:    pad2(days),
		Hours:   pad2(hours),
		Minutes: pad2(minutes),
		Seconds: pad2(seconds),
		Closing: days == 0 && hours < 24,
	}, false
}

func pad2(n int64) string {
	return fmt.Sprintf("%02d", n)
}

// Countdown renders the time left until a fixed end time, once per tick.
// Every frame is computed from the end time and the current clock reading,
// so stopping and restarting never accumulates drift. When the end time
// passes, the countdown renders a zero frame, reports the expiry once and
// stops itself; the authoritative end transition must come from the server.
type Countdown struct {
	tick    time.Duration
	clock   clockwork.Clock
	log     *zap.Logger
	render  func(Remaining)
	expired func(endTime int64)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCountdown returns a stopped countdown. render receives every frame;
// expired is called at most once per Start when the end time has passed.
func NewCountdown(tick time.Duration, clock clockwork.Clock, log *zap.Logger, render func(Remaining), expired func(endTime int64)) *Countdown {
	return &Countdown{
		tick:    tick,
		clock:   clock,
		log:     log,
		render:  render,
		expired: expired,
	}
}

// Start begins ticking toward endTime (unix ms). Any previous run is
// stopped first, so restarting is always safe.
func (c *Countdown) Start(ctx context.Context, endTime int64) {
	c.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(ctx, done, endTime)
}

// Stop cancels the current run and waits for it to finish.
func (c *Countdown) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (c *Countdown) run(ctx context.Context, done chan struct{}, endTime int64) {
	defer close(done)

	if ctx.Err() != nil {
		return
	}
	if !c.step(endTime) {
		return
	}

	ticker := c.clock.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if !c.step(endTime) {
				return
			}
		}
	}
}

// step renders one frame and reports whether the countdown should keep
// running.
func (c *Countdown) step(endTime int64) bool {
	frame, past := remainingAt(endTime, c.clock.Now())
	c.render(frame)
	if past {
		c.log.Debug("countdown reached zero", zap.Int64("end_time", endTime))
		c.expired(endTime)
		return false
	}
	return true
}
