package ledger

import (
	"sync"

	"impact-agent/models"
)

// MemoryLedger is an in-memory Ledger for tests and dry runs.
type MemoryLedger struct {
	mu      sync.Mutex
	entries []models.ProcessedFileEntry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) IsProcessed(filename string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Filename == filename {
			return true, nil
		}
	}
	return false, nil
}

func (l *MemoryLedger) Record(entry models.ProcessedFileEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *MemoryLedger) Entries() ([]models.ProcessedFileEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.ProcessedFileEntry, len(l.entries))
	copy(out, l.entries)
	return out, nil
}
