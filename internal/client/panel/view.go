package panel

// Controls reports which admin controls should currently accept input.
type Controls struct {
	// StartEnabled is false while a competition is running (active and
	// not ended) or while a start request is in flight.
	StartEnabled bool
	// ResetEnabled is false when there is nothing to reset (no active
	// competition and none has ended) or while a reset is in flight.
	ResetEnabled bool
}

// View receives everything the panel wants to show the operator. The
// terminal front end in cmd/panel implements it; tests use a recorder.
type View interface {
	// ShowMessage reports a routine notice (login succeeded, action ok).
	ShowMessage(msg string)
	// ShowError reports a failure the operator must act on.
	ShowError(msg string)
	// UpdateControls is called after every status refresh and around
	// start/reset calls.
	UpdateControls(c Controls)
	// UpdateCountdown is called once per countdown tick.
	UpdateCountdown(r Remaining)
}

// Confirmer asks the operator to approve a destructive action before the
// request is sent. Pluggable so the panel is testable without a real
// prompt.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }
