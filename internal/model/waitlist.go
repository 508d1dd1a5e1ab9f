package model

import "time"

// WaitlistEntry describes one party waiting for a seat.  Entries are kept in
// arrival order; a connection appears at most once.  The ordering itself
// lives in a Redis list keyed by connection ID, while this metadata is
// stored beside it under waitinfo:<connectionID>.
type WaitlistEntry struct {
	ConnectionID string    `json:"connection_id"`
	DisplayName  string    `json:"display_name,omitempty"`
	PartySize    int       `json:"party_size"`
	JoinedAt     time.Time `json:"joined_at"`
}
