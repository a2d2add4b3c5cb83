// Package repository provides data access implementations
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ulpfield/hazard-bot/internal/entities"
)

// ErrFindingNotFound is returned when no finding has the requested id
var ErrFindingNotFound = errors.New("finding not found")

// FindingRepository defines the interface for inspection finding persistence operations
type FindingRepository interface {
	SaveFindings(findings []entities.InspectionFinding) error
	ReplaceFindings(findings []entities.InspectionFinding) error
	GetFindings() ([]entities.InspectionFinding, error)
	GetFindingsByULP(ulp string) ([]entities.InspectionFinding, error)
	GetFindingByID(id string) (entities.InspectionFinding, error)
	GetLastSyncTime() (time.Time, error)
	Close() error
}

// SQLiteFindingRepository implements FindingRepository using SQLite
type SQLiteFindingRepository struct {
	db     *sql.DB
	DBPath string
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS findings (
		id TEXT PRIMARY KEY,
		lokasi TEXT NOT NULL DEFAULT '',
		jenis_pohon TEXT NOT NULL DEFAULT '',
		ulp TEXT NOT NULL DEFAULT '',
		petugas TEXT NOT NULL DEFAULT '',
		tgl_inspeksi TEXT NOT NULL DEFAULT '',
		tgl_eksekusi TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		prediksi_inspektur TEXT NOT NULL DEFAULT '',
		koordinat TEXT NOT NULL DEFAULT '',
		foto_sebelum_url TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		synced_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_findings_ulp ON findings(ulp);
	CREATE TABLE IF NOT EXISTS notification_log (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		tree_id TEXT NOT NULL DEFAULT '',
		tree_count INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL,
		sent_at TEXT NOT NULL,
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notification_log_lookup ON notification_log(type, tree_id, sent_at);`

// NewSQLiteFindingRepository creates and initializes a new SQLite repository.
// The same database also holds the notification log, see NewSQLiteNotificationLog.
func NewSQLiteFindingRepository(dbPath string) (*SQLiteFindingRepository, error) {
	if dbPath == "" {
		dbDir := "data"
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dbPath = filepath.Join(dbDir, "findings.db")
	}

	log.Infof("Opening database at %s", dbPath)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteFindingRepository{
		db:     db,
		DBPath: dbPath,
	}, nil
}

// DB exposes the underlying handle so other stores can share the file
func (r *SQLiteFindingRepository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *SQLiteFindingRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveFindings upserts findings by id
func (r *SQLiteFindingRepository) SaveFindings(findings []entities.InspectionFinding) error {
	return r.saveFindings(findings, false)
}

// ReplaceFindings makes findings the complete stored set: rows are upserted by id
// and every row missing from findings is removed in the same transaction
func (r *SQLiteFindingRepository) ReplaceFindings(findings []entities.InspectionFinding) error {
	return r.saveFindings(findings, true)
}

func (r *SQLiteFindingRepository) saveFindings(findings []entities.InspectionFinding, replace bool) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO findings(id, lokasi, jenis_pohon, ulp, petugas, tgl_inspeksi, tgl_eksekusi,
			status, prediksi_inspektur, koordinat, foto_sebelum_url, image_url, synced_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		lokasi=excluded.lokasi,
		jenis_pohon=excluded.jenis_pohon,
		ulp=excluded.ulp,
		petugas=excluded.petugas,
		tgl_inspeksi=excluded.tgl_inspeksi,
		tgl_eksekusi=excluded.tgl_eksekusi,
		status=excluded.status,
		prediksi_inspektur=excluded.prediksi_inspektur,
		koordinat=excluded.koordinat,
		foto_sebelum_url=excluded.foto_sebelum_url,
		image_url=excluded.image_url,
		synced_at=excluded.synced_at
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	syncedAt := time.Now().UTC()
	for _, f := range findings {
		_, err := stmt.Exec(
			f.ID,
			f.Lokasi,
			f.JenisPohon,
			f.ULP,
			f.Petugas,
			f.TglInspeksi,
			f.TglEksekusi,
			string(f.Status),
			f.PrediksiInspektur,
			f.Koordinat,
			f.FotoSebelumURL,
			f.ImageURL,
			syncedAt,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert finding %s: %w", f.ID, err)
		}
	}

	removed := int64(0)
	if replace {
		// rows written above all carry this sync's timestamp
		res, err := tx.Exec(`DELETE FROM findings WHERE synced_at IS NOT ?`, syncedAt)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to remove stale findings: %w", err)
		}
		removed, _ = res.RowsAffected()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{"saved": len(findings), "removed": removed}).Info("Successfully saved findings")
	return nil
}

const selectFindings = `
	SELECT id, lokasi, jenis_pohon, ulp, petugas, tgl_inspeksi, tgl_eksekusi,
		status, prediksi_inspektur, koordinat, foto_sebelum_url, image_url
	FROM findings`

// GetFindings returns every stored finding in insertion order
func (r *SQLiteFindingRepository) GetFindings() ([]entities.InspectionFinding, error) {
	return r.queryFindings(selectFindings + ` ORDER BY rowid`)
}

// GetFindingsByULP returns the findings owned by one operational unit
func (r *SQLiteFindingRepository) GetFindingsByULP(ulp string) ([]entities.InspectionFinding, error) {
	return r.queryFindings(selectFindings+` WHERE ulp = ? COLLATE NOCASE ORDER BY rowid`, ulp)
}

// GetFindingByID retrieves a single finding
func (r *SQLiteFindingRepository) GetFindingByID(id string) (entities.InspectionFinding, error) {
	findings, err := r.queryFindings(selectFindings+` WHERE id = ?`, id)
	if err != nil {
		return entities.InspectionFinding{}, err
	}
	if len(findings) == 0 {
		return entities.InspectionFinding{}, fmt.Errorf("%w: %s", ErrFindingNotFound, id)
	}
	return findings[0], nil
}

func (r *SQLiteFindingRepository) queryFindings(query string, args ...interface{}) ([]entities.InspectionFinding, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var result []entities.InspectionFinding
	for rows.Next() {
		var f entities.InspectionFinding
		var status string
		if err := rows.Scan(
			&f.ID,
			&f.Lokasi,
			&f.JenisPohon,
			&f.ULP,
			&f.Petugas,
			&f.TglInspeksi,
			&f.TglEksekusi,
			&status,
			&f.PrediksiInspektur,
			&f.Koordinat,
			&f.FotoSebelumURL,
			&f.ImageURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		f.Status = entities.Status(status)
		result = append(result, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return result, nil
}

// GetLastSyncTime returns when findings were last written, zero if never
func (r *SQLiteFindingRepository) GetLastSyncTime() (time.Time, error) {
	var ts sql.NullString
	if err := r.db.QueryRow("SELECT MAX(synced_at) FROM findings").Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}
	if !ts.Valid || ts.String == "" {
		return time.Time{}, nil
	}

	// the driver may hand back either layout depending on how the value was bound
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ts.String); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s'", ts.String)
}
