package panel

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/ArenaPanel/internal/apitest"
	"github.com/atinyakov/ArenaPanel/internal/client/api"
	"github.com/atinyakov/ArenaPanel/internal/client/session"
)

// TestPanelAgainstFakeServer drives the whole client stack (panel, poller,
// countdown, API client) against an in-process admin API.
func TestPanelAgainstFakeServer(t *testing.T) {
	srv := apitest.New(t, "hunter2")
	ctx := context.Background()

	client := api.New(srv.URL, zap.NewNop())
	view := &recView{}
	store := session.New(filepath.Join(t.TempDir(), "session"))

	p := New(Config{
		Client:       client,
		Store:        store,
		View:         view,
		Confirm:      ConfirmerFunc(func(string) bool { return true }),
		Logger:       zap.NewNop(),
		PollInterval: 50 * time.Millisecond,
		TickInterval: 10 * time.Millisecond,
	})
	defer p.Close()

	// Wrong key first: stays logged out.
	require.ErrorIs(t, p.Login(ctx, "wrong"), api.ErrInvalidCredential)
	require.Equal(t, StateLoggedOut, p.State())

	require.NoError(t, p.Login(ctx, "hunter2"))
	require.Equal(t, StateLoggedIn, p.State())
	require.Eventually(t, func() bool {
		c, ok := view.lastControls()
		return ok && c.StartEnabled && !c.ResetEnabled
	}, 2*time.Second, 5*time.Millisecond, "no competition: start allowed, nothing to reset")

	require.NoError(t, p.Start(ctx, 7))
	require.Eventually(t, func() bool {
		comp := p.Current()
		return comp != nil && comp.IsActive && comp.DurationDays == 7
	}, 2*time.Second, 5*time.Millisecond, "forced refresh must pick up the started competition")

	require.Eventually(t, func() bool {
		c, ok := view.lastControls()
		return ok && !c.StartEnabled && c.ResetEnabled
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		r, ok := view.lastCountdown()
		return ok && r.Active && (r.Days == "06" || r.Days == "07")
	}, 2*time.Second, 5*time.Millisecond)

	// A second start is refused locally before any request is made.
	n := srv.StartCalls()
	require.Error(t, p.Start(ctx, 7))
	assert.Equal(t, n, srv.StartCalls())

	require.NoError(t, p.Reset(ctx))
	require.Eventually(t, func() bool {
		comp := p.Current()
		return comp != nil && !comp.IsActive
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		r, ok := view.lastCountdown()
		return ok && !r.Active
	}, 2*time.Second, 5*time.Millisecond, "countdown returns to placeholder after reset")

	p.Logout()
	require.Equal(t, StateLoggedOut, p.State())
	key, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, key)
}
