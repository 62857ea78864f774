package models

import "time"

// DeletionRecord is the audit entry for one processed deletion event
type DeletionRecord struct {
	ID uint64 `boltholdKey:"ID"`

	// Event
	Kind        MediaKind `boltholdIndex:"Kind"`
	Title       string
	Season      *int
	Episode     *int
	ExternalIDs ExternalIDs

	// Processing
	Catalog     string      // "sonarr", "radarr" or empty when never routed
	Outcome     Outcome     `boltholdIndex:"Outcome"`
	Reason      string
	MatchMethod MatchMethod // identifier, name or none
	Actions     []string    // Downstream mutations performed, in order

	ProcessedAt time.Time `boltholdIndex:"ProcessedAt"`
}

// SearchReport summarizes one missing-item search run against a catalog
type SearchReport struct {
	ID      uint64 `boltholdKey:"ID"`
	Catalog string `boltholdIndex:"Catalog"`

	// Stalled cleanup
	Stalled     int
	Blocklisted int

	// Disk gate
	FreeSpaceGB float64
	Skipped     bool   // Run stopped before searching
	SkipReason  string // e.g. "low disk space"

	// Searches
	Missing   int
	Searched  int
	Failed    int
	Cancelled bool

	StartedAt  time.Time `boltholdIndex:"StartedAt"`
	FinishedAt time.Time
}
