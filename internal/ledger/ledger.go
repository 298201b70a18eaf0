// Package ledger keeps a local SQLite history of provisioning runs so that
// APIs created in earlier sessions can be listed and torn down.
package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/innkeeper/pkg/types"
)

// FileName is the database file created in the data directory.
const FileName = "innkeeper.db"

// Ledger errors.
var (
	ErrNotFound = errors.New("record not found")
	ErrClosed   = errors.New("ledger is closed")
)

// Ledger is a SQLite-backed store of types.Record.
type Ledger struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates dataDir if needed, opens the database inside it and applies
// the schema.
func Open(dataDir string) (*Ledger, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dataDir, FileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection serialises writers; SQLite locks the file anyway.
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return &Ledger{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file location.
func (l *Ledger) Path() string {
	return l.path
}

// Close releases the database. Close is idempotent.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// generateUUID generates a new UUID v7 for record IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// Append stores r. An empty ID is assigned a UUID v7 and a zero CreatedAt
// is set to the current time. The stored record is returned.
func (l *Ledger) Append(r types.Record) (types.Record, error) {
	if r.APIID == "" {
		return types.Record{}, types.ErrRecordIncomplete
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return types.Record{}, ErrClosed
	}

	if r.ID == "" {
		r.ID = generateUUID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = l.now().UTC()
	}

	resources, err := json.Marshal(r.Resources)
	if err != nil {
		return types.Record{}, fmt.Errorf("marshal resources: %w", err)
	}

	_, err = l.db.Exec(`INSERT INTO records
        (record_id, api_id, api_name, stage, deployment_id, invoke_url, region, endpoint, resources, created_at, deleted_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.APIID, r.APIName, r.Stage, r.DeploymentID, r.InvokeURL, r.Region, r.Endpoint,
		string(resources), formatTime(r.CreatedAt), formatTimePtr(r.DeletedAt),
	)
	if err != nil {
		return types.Record{}, fmt.Errorf("insert record: %w", err)
	}
	return r, nil
}

const selectRecord = `SELECT record_id, api_id, api_name, stage, deployment_id, invoke_url,
        region, endpoint, resources, created_at, deleted_at FROM records`

// Get returns the record with the given id.
func (l *Ledger) Get(id string) (types.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.db == nil {
		return types.Record{}, ErrClosed
	}

	row := l.db.QueryRow(selectRecord+` WHERE record_id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, ErrNotFound
	}
	return r, err
}

// FindByAPI returns the newest record for apiID.
func (l *Ledger) FindByAPI(apiID string) (types.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.db == nil {
		return types.Record{}, ErrClosed
	}

	row := l.db.QueryRow(selectRecord+` WHERE api_id = ? ORDER BY created_at DESC, record_id DESC LIMIT 1`, apiID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, ErrNotFound
	}
	return r, err
}

// List returns records newest first. Records of deleted APIs are skipped
// unless includeDeleted is set.
func (l *Ledger) List(includeDeleted bool) ([]types.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.db == nil {
		return nil, ErrClosed
	}

	query := selectRecord
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, record_id DESC`

	rows, err := l.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// MarkDeleted stamps every live record of apiID as deleted at the given
// time. It returns ErrNotFound when no live record matches.
func (l *Ledger) MarkDeleted(apiID string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return ErrClosed
	}

	res, err := l.db.Exec(`UPDATE records SET deleted_at = ? WHERE api_id = ? AND deleted_at IS NULL`,
		formatTime(at), apiID)
	if err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark deleted: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (types.Record, error) {
	var (
		r                                 types.Record
		deploymentID, invokeURL, endpoint sql.NullString
		resources, createdAt              string
		deletedAt                         sql.NullString
	)
	if err := s.Scan(&r.ID, &r.APIID, &r.APIName, &r.Stage, &deploymentID, &invokeURL,
		&r.Region, &endpoint, &resources, &createdAt, &deletedAt); err != nil {
		return types.Record{}, err
	}
	r.DeploymentID = deploymentID.String
	r.InvokeURL = invokeURL.String
	r.Endpoint = endpoint.String

	if err := json.Unmarshal([]byte(resources), &r.Resources); err != nil {
		return types.Record{}, fmt.Errorf("unmarshal resources of %s: %w", r.ID, err)
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return types.Record{}, err
	}
	r.CreatedAt = t
	if deletedAt.Valid {
		t, err := parseTime(deletedAt.String)
		if err != nil {
			return types.Record{}, err
		}
		r.DeletedAt = &t
	}
	return r, nil
}

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
