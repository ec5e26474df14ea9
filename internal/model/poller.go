package model

import "time"

type PollerSnapshot struct {
	Running   bool          `json:"running"`
	Interval  time.Duration `json:"interval"`
	Polls     int           `json:"polls"`
	LastPoll  *time.Time    `json:"last_poll"`
	LastError string        `json:"last_error,omitempty"`
}
