package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"impact-agent/models"
)

// FileLedger persists entries as a single JSON array. The whole list
// is loaded, appended and rewritten on each record; a mutex serializes
// writers within the process and the rewrite goes through a temp file
// plus rename so a crash cannot truncate the ledger. The original
// design had a lost-update race between concurrent processes; the
// in-process lock and atomic rename narrow it to the documented
// single-writer assumption.
type FileLedger struct {
	path string
	mu   sync.Mutex
}

// NewFileLedger opens (or lazily creates) a ledger at path.
func NewFileLedger(path string) *FileLedger {
	return &FileLedger{path: path}
}

func (l *FileLedger) load() ([]models.ProcessedFileEntry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			// First use: create the ledger empty rather than erroring.
			if werr := os.WriteFile(l.path, []byte("[]"), 0644); werr != nil {
				return nil, fmt.Errorf("failed to create ledger file: %w", werr)
			}
			return []models.ProcessedFileEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var entries []models.ProcessedFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse ledger file %s: %w", l.path, err)
	}
	return entries, nil
}

func (l *FileLedger) IsProcessed(filename string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Filename == filename {
			return true, nil
		}
	}
	return false, nil
}

func (l *FileLedger) Record(entry models.ProcessedFileEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return err
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".ledger-*")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp ledger file: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}

func (l *FileLedger) Entries() ([]models.ProcessedFileEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}
