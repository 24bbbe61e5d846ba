package ledger

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"

	"impact-agent/models"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
)

func setUp() {
	db, mock, _ = sqlmock.New()
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func TestMySQLIsProcessed(t *testing.T) {
	it(func() {
		l := NewMySQLLedger(db, "structured")

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM processed_files").
			WithArgs("structured", "a.jpg").
			WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))

		processed, err := l.IsProcessed("a.jpg")
		if err != nil {
			t.Fatalf("IsProcessed failed: %v", err)
		}
		if !processed {
			t.Error("row present but IsProcessed returned false")
		}

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM processed_files").
			WithArgs("structured", "b.jpg").
			WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(0))

		processed, err = l.IsProcessed("b.jpg")
		if err != nil {
			t.Fatalf("IsProcessed failed: %v", err)
		}
		if processed {
			t.Error("no row but IsProcessed returned true")
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestMySQLRecord(t *testing.T) {
	it(func() {
		l := NewMySQLLedger(db, "simple")

		mock.ExpectExec("INSERT INTO processed_files").
			WithArgs("simple", "a.jpg", "0x01", "2024-06-15T14:30:00Z", models.StatusSuccess, "0xdead", "Qm123").
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := l.Record(models.ProcessedFileEntry{
			Filename:   "a.jpg",
			ProposalID: "0x01",
			Timestamp:  "2024-06-15T14:30:00Z",
			Status:     models.StatusSuccess,
			TxHash:     "0xdead",
			IPFSCID:    "Qm123",
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestMySQLEntries(t *testing.T) {
	it(func() {
		l := NewMySQLLedger(db, "simple")

		rows := sqlmock.NewRows([]string{"filename", "proposal_id", "processed_at", "status", "tx_hash", "ipfs_cid"}).
			AddRow("a.jpg", "0x01", "2024-06-15T14:30:00Z", models.StatusSuccess, "0xdead", "Qm123").
			AddRow("b.jpg", "", "2024-06-15T15:00:00Z", models.StatusFailed, "", "")
		mock.ExpectQuery("SELECT filename, proposal_id, processed_at, status, tx_hash, ipfs_cid").
			WithArgs("simple").
			WillReturnRows(rows)

		entries, err := l.Entries()
		if err != nil {
			t.Fatalf("Entries failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("got %d entries, want 2", len(entries))
		}
		if entries[0].Filename != "a.jpg" || entries[0].ProposalID != "0x01" {
			t.Errorf("first entry = %+v", entries[0])
		}
		if entries[1].Status != models.StatusFailed {
			t.Errorf("second entry status = %q", entries[1].Status)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestMySQLCreateTable(t *testing.T) {
	it(func() {
		l := NewMySQLLedger(db, "simple")

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS processed_files").
			WillReturnResult(sqlmock.NewResult(0, 0))

		if err := l.CreateTable(); err != nil {
			t.Fatalf("CreateTable failed: %v", err)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}
