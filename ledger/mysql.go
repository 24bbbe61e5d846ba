package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"impact-agent/models"
)

// MySQLLedger stores processed-file rows in a table with a uniqueness
// constraint on filename, which enforces at-most-once submission even
// across concurrent processes (where the file ledger cannot).
type MySQLLedger struct {
	db      *sql.DB
	profile string
}

// NewMySQLLedger wraps an existing connection. The profile column
// keeps the simple and structured ledgers separate within one table.
func NewMySQLLedger(db *sql.DB, profile string) *MySQLLedger {
	return &MySQLLedger{db: db, profile: profile}
}

// OpenMySQL dials the ledger database.
func OpenMySQL(user, password, host, port, name string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		user, password, host, port, name)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// CreateTable creates the processed_files table if it doesn't exist.
func (l *MySQLLedger) CreateTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS processed_files (
		id INT AUTO_INCREMENT PRIMARY KEY,
		profile VARCHAR(32) NOT NULL,
		filename VARCHAR(512) NOT NULL,
		proposal_id VARCHAR(128) NOT NULL DEFAULT '',
		processed_at VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL,
		tx_hash VARCHAR(128) NOT NULL DEFAULT '',
		ipfs_cid VARCHAR(128) NOT NULL DEFAULT '',
		UNIQUE KEY uniq_profile_filename (profile, filename)
	)`
	if _, err := l.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create processed_files table: %w", err)
	}
	return nil
}

func (l *MySQLLedger) IsProcessed(filename string) (bool, error) {
	var count int
	err := l.db.QueryRow(
		"SELECT COUNT(*) FROM processed_files WHERE profile = ? AND filename = ?",
		l.profile, filename,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query processed_files: %w", err)
	}
	return count > 0, nil
}

func (l *MySQLLedger) Record(entry models.ProcessedFileEntry) error {
	_, err := l.db.Exec(
		`INSERT INTO processed_files
		 (profile, filename, proposal_id, processed_at, status, tx_hash, ipfs_cid)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.profile, entry.Filename, entry.ProposalID, entry.Timestamp,
		entry.Status, entry.TxHash, entry.IPFSCID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert processed_files row: %w", err)
	}
	return nil
}

func (l *MySQLLedger) Entries() ([]models.ProcessedFileEntry, error) {
	rows, err := l.db.Query(
		`SELECT filename, proposal_id, processed_at, status, tx_hash, ipfs_cid
		 FROM processed_files WHERE profile = ? ORDER BY id`,
		l.profile,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query processed_files: %w", err)
	}
	defer rows.Close()

	var entries []models.ProcessedFileEntry
	for rows.Next() {
		var e models.ProcessedFileEntry
		if err := rows.Scan(&e.Filename, &e.ProposalID, &e.Timestamp, &e.Status, &e.TxHash, &e.IPFSCID); err != nil {
			return nil, fmt.Errorf("failed to scan processed_files row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
