package domain

import "time"

type Snippet struct {
	ID      string
	Content string
	Expiry  time.Time
}

// Live reports whether the snippet is still servable at now.
func (s *Snippet) Live(now time.Time) bool {
	return !now.After(s.Expiry)
}

// record is the on-disk representation of a snippet.
type record struct {
	Content string    `json:"content"`
	Expiry  time.Time `json:"expiry"`
}

// ParsedWrite is a validated write request.
type ParsedWrite struct {
	Content       string
	ExpiryMinutes int
}
