// Package ledger tracks which source files already produced a proposal
// so a batch never submits the same file twice. The simple and
// structured submission profiles keep independent ledgers.
package ledger

import "impact-agent/models"

// Ledger is the processed-file store consulted before any analysis
// work begins and appended to after every attempt. Implementations
// must serialize concurrent access.
type Ledger interface {
	// IsProcessed reports whether the filename already has an entry.
	IsProcessed(filename string) (bool, error)
	// Record appends one outcome row. Rows are never mutated.
	Record(entry models.ProcessedFileEntry) error
	// Entries returns all rows in the order they were written.
	Entries() ([]models.ProcessedFileEntry, error)
}
