// Package probe drives a running dashboard over HTTP and WebSocket and
// checks the interaction properties session by session.
package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Sessions   int           // Number of sessions to drive
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Report file, empty for none
	Verbose    bool          // Log every check
}

// Failure is one violated property.
type Failure struct {
	Session string `json:"session"`
	Check   string `json:"check"`
	Detail  string `json:"detail"`
}

// Stats holds run statistics.
type Stats struct {
	SessionsOpened int           `json:"sessions_opened"`
	SessionsFailed int           `json:"sessions_failed"`
	Requests       int64         `json:"requests"`
	Checks         int64         `json:"checks"`
	FramesPushed   int64         `json:"frames_pushed"`
	Failures       []Failure     `json:"failures"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	Duration       time.Duration `json:"duration_ns"`
}
