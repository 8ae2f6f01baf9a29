package main

import (
	"bufio"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atinyakov/ArenaPanel/internal/client/panel"
	"github.com/atinyakov/ArenaPanel/internal/models"
)

// termView prints panel messages as they happen and keeps the latest
// countdown frame and control state for the `status` command. Countdown
// ticks arrive once per second, so they are stored rather than printed to
// keep the prompt usable.
type termView struct {
	mu        sync.Mutex
	remaining panel.Remaining
	controls  panel.Controls
}

func (v *termView) ShowMessage(msg string) {
	fmt.Println(msg)
}

func (v *termView) ShowError(msg string) {
	fmt.Println("Error:", msg)
}

func (v *termView) UpdateControls(c panel.Controls) {
	v.mu.Lock()
	v.controls = c
	v.mu.Unlock()
}

func (v *termView) UpdateCountdown(r panel.Remaining) {
	v.mu.Lock()
	v.remaining = r
	v.mu.Unlock()
}

// printStatus renders the last known state on demand.
func (v *termView) printStatus(p *panel.Panel) {
	v.mu.Lock()
	remaining := v.remaining
	controls := v.controls
	v.mu.Unlock()

	fmt.Println("State:", p.State())
	comp := p.Current()
	if comp == nil {
		fmt.Println("No status received yet")
		return
	}

	switch {
	case comp.IsActive && !comp.IsEnded:
		fmt.Printf("Competition: active (%d days)\n", comp.DurationDays)
	case comp.IsEnded:
		fmt.Println("Competition: ended")
	default:
		fmt.Println("Competition: none")
	}
	printTimes(comp)

	if remaining.Active {
		fmt.Printf("Remaining: %s:%s:%s:%s (d:h:m:s)\n",
			remaining.Days, remaining.Hours, remaining.Minutes, remaining.Seconds)
		if remaining.Closing {
			fmt.Println("Less than 24 hours left")
		}
	} else {
		fmt.Println("Remaining: --:--:--:--")
	}

	fmt.Printf("Controls: start %s, reset %s\n",
		enabled(controls.StartEnabled), enabled(controls.ResetEnabled))
}

func printTimes(comp *models.Competition) {
	if comp.StartTime != nil {
		fmt.Println("Started:", formatMillis(*comp.StartTime))
	}
	if comp.EndTime != nil {
		fmt.Println("Ends:", formatMillis(*comp.EndTime))
	}
}

func enabled(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format(time.RFC1123)
}

// termConfirmer blocks on stdin for an explicit yes/no answer. It shares
// the shell's scanner so prompt reads do not race the command loop.
type termConfirmer struct {
	scanner *bufio.Scanner
}

func (c *termConfirmer) Confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	if !c.scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(c.scanner.Text()))
	return answer == "y" || answer == "yes"
}

var _ panel.View = (*termView)(nil)
var _ panel.Confirmer = (*termConfirmer)(nil)
