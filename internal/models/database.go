package models

import (
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Deletion history operations

// CreateDeletionRecord stores the outcome of a processed event
func (db *Database) CreateDeletionRecord(record *DeletionRecord) error {
	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = time.Now()
	}
	return db.store.Insert(bolthold.NextSequence(), record)
}

// GetAllDeletionRecords retrieves the full deletion history
func (db *Database) GetAllDeletionRecords() ([]*DeletionRecord, error) {
	var records []*DeletionRecord
	err := db.store.Find(&records, nil)
	return records, err
}

// GetDeletionRecordsByOutcome retrieves history entries with the given outcome
func (db *Database) GetDeletionRecordsByOutcome(outcome Outcome) ([]*DeletionRecord, error) {
	var records []*DeletionRecord
	err := db.store.Find(&records, bolthold.Where("Outcome").Eq(outcome))
	return records, err
}

// GetRecentDeletionRecords retrieves the newest history entries first
func (db *Database) GetRecentDeletionRecords(limit int) ([]*DeletionRecord, error) {
	var records []*DeletionRecord
	query := (&bolthold.Query{}).SortBy("ProcessedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := db.store.Find(&records, query)
	return records, err
}

// PruneDeletionRecords removes history entries processed before cutoff.
// Returns the number of removed entries.
func (db *Database) PruneDeletionRecords(cutoff time.Time) (int, error) {
	var records []*DeletionRecord
	if err := db.store.Find(&records, bolthold.Where("ProcessedAt").Lt(cutoff)); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := db.store.DeleteMatching(&DeletionRecord{}, bolthold.Where("ProcessedAt").Lt(cutoff)); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Search report operations

// CreateSearchReport stores a finished search run
func (db *Database) CreateSearchReport(report *SearchReport) error {
	return db.store.Insert(bolthold.NextSequence(), report)
}

// GetLatestSearchReport retrieves the most recent run for a catalog
func (db *Database) GetLatestSearchReport(catalog string) (*SearchReport, error) {
	var reports []*SearchReport
	err := db.store.Find(&reports,
		bolthold.Where("Catalog").Eq(catalog).
			SortBy("StartedAt").Reverse().Limit(1))
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, bolthold.ErrNotFound
	}
	return reports[0], nil
}

// PruneSearchReports removes reports started before cutoff
func (db *Database) PruneSearchReports(cutoff time.Time) error {
	return db.store.DeleteMatching(&SearchReport{}, bolthold.Where("StartedAt").Lt(cutoff))
}
