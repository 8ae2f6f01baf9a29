// Package models defines the competition state and the wire shapes of the
// admin API.
package models

// Competition represents the state of the timed competition as reported by
// the server. It is replaced wholesale on every successful status fetch and
// never partially updated.
type Competition struct {
	// IsActive reports whether a competition is currently running.
	IsActive bool `json:"isActive"`
	// IsEnded reports whether the last competition has finished. The
	// client trusts the server's IsActive/IsEnded combination as-is.
	IsEnded bool `json:"isEnded"`
	// StartTime is the competition start in unix milliseconds, nil when
	// none has been scheduled.
	StartTime *int64 `json:"startTime"`
	// EndTime is the competition end in unix milliseconds, nil when none
	// has been scheduled.
	EndTime *int64 `json:"endTime"`
	// RemainingSeconds is the server-computed time left.
	RemainingSeconds int64 `json:"remainingSeconds"`
	// DurationDays is the configured competition length.
	DurationDays int `json:"durationDays"`
}

// StatusResponse is the body of GET /api/admin/status.
type StatusResponse struct {
	Success     bool        `json:"success"`
	Competition Competition `json:"competition"`
}

// StartRequest is the body of POST /api/admin/start.
type StartRequest struct {
	DurationDays int `json:"durationDays"`
}

// ActionResponse is the body returned by the start and reset endpoints.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ValidDurations lists the competition lengths the server accepts, in days.
var ValidDurations = []int{7, 14, 30}

// IsValidDuration reports whether days is an accepted competition length.
func IsValidDuration(days int) bool {
	for _, d := range ValidDurations {
		if d == days {
			return true
		}
	}
	return false
}
