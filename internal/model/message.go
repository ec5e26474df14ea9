package model

import "time"

// Message is one line of the activity feed shown to the user.
type Message struct {
	Time   time.Time `json:"time"`
	Origin string    `json:"origin"`
	Text   string    `json:"text"`
}
