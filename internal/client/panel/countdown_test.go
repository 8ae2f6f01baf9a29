package panel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func TestRemainingAt(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	tests := []struct {
		name     string
		distance int64 // ms between now and endTime
		want     Remaining
		expired  bool
	}{
		{
			name:     "one hour one minute one second",
			distance: 3_661_000,
			want:     Remaining{Active: true, Days: "00", Hours: "01", Minutes: "01", Seconds: "01", Closing: true},
		},
		{
			name:     "one day one hour one minute one second",
			distance: 90_061_000,
			want:     Remaining{Active: true, Days: "01", Hours: "01", Minutes: "01", Seconds: "01", Closing: false},
		},
		{
			name:     "exactly zero is not yet expired",
			distance: 0,
			want:     Remaining{Active: true, Days: "00", Hours: "00", Minutes: "00", Seconds: "00", Closing: true},
		},
		{
			name:     "past end clamps to zero",
			distance: -1,
			want:     Remaining{Active: true, Days: "00", Hours: "00", Minutes: "00", Seconds: "00", Closing: true},
			expired:  true,
		},
		{
			name:     "two weeks",
			distance: 14 * msPerDay,
			want:     Remaining{Active: true, Days: "14", Hours: "00", Minutes: "00", Seconds: "00", Closing: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, expired := remainingAt(now.UnixMilli()+tt.distance, now)
			if got != tt.want {
				t.Errorf("remainingAt() = %+v, want %+v", got, tt.want)
			}
			if expired != tt.expired {
				t.Errorf("expired = %v, want %v", expired, tt.expired)
			}
		})
	}
}

// TestRemainingAt_Decomposition checks that for non-negative distances the
// displayed fields recompose into floor(distance/1000) seconds.
func TestRemainingAt_Decomposition(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	distances := []int64{0, 999, 1_000, 59_999, 3_661_000, 86_400_000, 90_061_499, 30 * msPerDay}

	for _, d := range distances {
		got, expired := remainingAt(now.UnixMilli()+d, now)
		if expired {
			t.Errorf("distance %d: unexpected expiry", d)
			continue
		}
		total := atoi(t, got.Days)*86400 + atoi(t, got.Hours)*3600 + atoi(t, got.Minutes)*60 + atoi(t, got.Seconds)
		if total != d/1000 {
			t.Errorf("distance %d: fields %s:%s:%s:%s sum to %d seconds, want %d",
				d, got.Days, got.Hours, got.Minutes, got.Seconds, total, d/1000)
		}
		if len(got.Days) < 2 || len(got.Hours) != 2 || len(got.Minutes) != 2 || len(got.Seconds) != 2 {
			t.Errorf("distance %d: fields not zero-padded: %+v", d, got)
		}
	}
}

func atoi(t *testing.T, s string) int64 {
	t.Helper()
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			t.Fatalf("non-digit in field %q", s)
		}
		n = n*10 + int64(c-'0')
	}
	return n
}

// frameRecorder collects countdown callbacks for assertions.
type frameRecorder struct {
	frames  chan Remaining
	expired chan int64
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{
		frames:  make(chan Remaining, 64),
		expired: make(chan int64, 64),
	}
}

func (r *frameRecorder) nextFrame(t *testing.T) Remaining {
	t.Helper()
	select {
	case f := <-r.frames:
		return f
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a countdown frame")
		return Remaining{}
	}
}

func (r *frameRecorder) noFrame(t *testing.T) {
	t.Helper()
	select {
	case f := <-r.frames:
		t.Fatalf("unexpected countdown frame: %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCountdown_TicksOffEndTime(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFrameRecorder()
	cd := NewCountdown(time.Second, clock, zap.NewNop(),
		func(f Remaining) { rec.frames <- f },
		func(end int64) { rec.expired <- end },
	)
	defer cd.Stop()

	end := clock.Now().Add(3 * time.Second).UnixMilli()
	cd.Start(context.Background(), end)

	if f := rec.nextFrame(t); f.Seconds != "03" {
		t.Errorf("initial frame seconds = %q, want 03", f.Seconds)
	}

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	if f := rec.nextFrame(t); f.Seconds != "02" {
		t.Errorf("frame after 1s = %q, want 02", f.Seconds)
	}

	clock.Advance(time.Second)
	if f := rec.nextFrame(t); f.Seconds != "01" {
		t.Errorf("frame after 2s = %q, want 01", f.Seconds)
	}
}

func TestCountdown_ExpiryRendersZeroAndStops(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFrameRecorder()
	cd := NewCountdown(time.Second, clock, zap.NewNop(),
		func(f Remaining) { rec.frames <- f },
		func(end int64) { rec.expired <- end },
	)
	defer cd.Stop()

	end := clock.Now().Add(time.Second).UnixMilli()
	cd.Start(context.Background(), end)
	rec.nextFrame(t) // 00:00:00:01

	clock.BlockUntil(1)
	clock.Advance(time.Second) // distance 0: still ticking
	if f := rec.nextFrame(t); f.Seconds != "00" {
		t.Errorf("frame at end = %q, want 00", f.Seconds)
	}

	clock.Advance(time.Second) // distance < 0: clamp, report, stop
	f := rec.nextFrame(t)
	if f.Days != "00" || f.Hours != "00" || f.Minutes != "00" || f.Seconds != "00" {
		t.Errorf("expiry frame not clamped to zero: %+v", f)
	}

	select {
	case got := <-rec.expired:
		if got != end {
			t.Errorf("expired with end %d, want %d", got, end)
		}
	case <-time.After(time.Second):
		t.Fatal("expiry was never reported")
	}

	// The loop has stopped: ticking further produces nothing, and the
	// expiry is never reported twice for one crossing.
	clock.Advance(5 * time.Second)
	rec.noFrame(t)
	select {
	case <-rec.expired:
		t.Error("expiry reported more than once")
	default:
	}
}

func TestCountdown_AlreadyExpiredAtStart(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFrameRecorder()
	cd := NewCountdown(time.Second, clock, zap.NewNop(),
		func(f Remaining) { rec.frames <- f },
		func(end int64) { rec.expired <- end },
	)
	defer cd.Stop()

	cd.Start(context.Background(), clock.Now().Add(-time.Minute).UnixMilli())

	if f := rec.nextFrame(t); f.Seconds != "00" || f.Days != "00" {
		t.Errorf("expected zero frame, got %+v", f)
	}
	select {
	case <-rec.expired:
	case <-time.After(time.Second):
		t.Fatal("expiry was never reported")
	}
}

func TestCountdown_RestartTargetsNewEnd(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := newFrameRecorder()
	cd := NewCountdown(time.Second, clock, zap.NewNop(),
		func(f Remaining) { rec.frames <- f },
		func(end int64) { rec.expired <- end },
	)
	defer cd.Stop()

	cd.Start(context.Background(), clock.Now().Add(10*time.Second).UnixMilli())
	if f := rec.nextFrame(t); f.Seconds != "10" {
		t.Errorf("initial frame seconds = %q, want 10", f.Seconds)
	}

	// Restart with a different end; the old schedule must be gone.
	cd.Start(context.Background(), clock.Now().Add(42*time.Second).UnixMilli())
	if f := rec.nextFrame(t); f.Seconds != "42" {
		t.Errorf("frame after restart = %q, want 42", f.Seconds)
	}

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	if f := rec.nextFrame(t); f.Seconds != "41" {
		t.Errorf("one tick after restart = %q, want 41", f.Seconds)
	}
	rec.noFrame(t)
}

func TestCountdown_StopIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var mu sync.Mutex
	var frames int
	cd := NewCountdown(time.Second, clock, zap.NewNop(),
		func(Remaining) { mu.Lock(); frames++; mu.Unlock() },
		func(int64) {},
	)

	cd.Stop() // never started

	cd.Start(context.Background(), clock.Now().Add(time.Hour).UnixMilli())
	cd.Stop()
	cd.Stop()

	mu.Lock()
	n := frames
	mu.Unlock()

	clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if frames != n {
		t.Errorf("frames rendered after Stop: %d -> %d", n, frames)
	}
}
