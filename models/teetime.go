package models

import (
	"time"
)

// MaxPlayers is the capacity of a single tee time.
const MaxPlayers = 4

// TeeSlot is one bookable tee time as shown on the calendar, combined
// with the players currently signed up for it.
type TeeSlot struct {
	// ID is positional (1-based, feed order) and only stable within a
	// single load. It is what the UI and request paths use.
	ID int `json:"id"`
	// Key is the roster-store key: the feed's own row id when the feed
	// provides one, otherwise the positional id as a string.
	Key           string    `json:"key"`
	Date          time.Time `json:"date"`
	RawDate       string    `json:"raw_date"`
	FormattedDate string    `json:"formatted_date"`
	Time          string    `json:"time"`
	Course        string    `json:"course"`
	Players       []string  `json:"players"`
}

func (s TeeSlot) Full() bool {
	return len(s.Players) >= MaxPlayers
}

// FeedRow is one row of the tee sheet feed after header normalization.
type FeedRow struct {
	RowID  string `json:"row_id"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Course string `json:"course"`
	// Players holds the legacy "Player 1".."Player 4" columns, blanks
	// removed. Newer sheets leave these empty and the roster store is
	// authoritative.
	Players []string `json:"players"`
}

// RosterSnapshot is the full contents of the roster store, keyed by slot key.
type RosterSnapshot map[string][]string

// Scorecard is the stored metadata for one uploaded scorecard image.
type Scorecard struct {
	Name       string    `json:"name"`
	Caption    string    `json:"caption"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Recipient is an email subscriber notified when a tee time fills up.
type Recipient struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}
