// Package brainstore keeps exported snapshots of the rover network's
// weights in a SQLite database.
package brainstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gwillem/rover/pkg/rover"
)

// ErrNoWeights is returned when there is nothing to export.
var ErrNoWeights = errors.New("no network weights received yet")

// Export is one saved set of network tensors.
type Export struct {
	ID         string
	CreatedAt  time.Time
	Neurons    int
	Inputs     int
	Autonomous rover.DriveCommand
	Weights    rover.Tensor
	Deltas     rover.Tensor
}

// ExportInfo describes an export without its tensors.
type ExportInfo struct {
	ID        string
	CreatedAt time.Time
	Neurons   int
	Inputs    int
	Bytes     int64
}

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB

	now func() time.Time
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path, now: time.Now}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// ExportWeights saves the weights and deltas of tel and returns the new
// export's id.
func (s *SQLiteStore) ExportWeights(ctx context.Context, tel rover.Telemetry) (string, error) {
	if tel.NeuronCount() == 0 {
		return "", ErrNoWeights
	}
	if err := tel.Weights.Check(); err != nil {
		return "", fmt.Errorf("weights: %w", err)
	}
	if err := tel.Deltas.Check(); err != nil {
		return "", fmt.Errorf("deltas: %w", err)
	}

	db, err := s.getDB()
	if err != nil {
		return "", err
	}

	weights, err := json.Marshal(tel.Weights)
	if err != nil {
		return "", err
	}
	deltas, err := json.Marshal(tel.Deltas)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO exports (id, created_at, neurons, inputs, autonomous_left, autonomous_right, weights, deltas)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, s.now().UTC().UnixNano(), tel.Weights.Cols, tel.Weights.Rows,
		tel.Autonomous.Left, tel.Autonomous.Right, weights, deltas)
	if err != nil {
		return "", fmt.Errorf("insert export: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) GetExport(ctx context.Context, id string) (Export, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Export{}, false, err
	}

	var (
		e       Export
		created int64
		weights []byte
		deltas  []byte
	)
	err = db.QueryRowContext(ctx, `
		SELECT id, created_at, neurons, inputs, autonomous_left, autonomous_right, weights, deltas
		FROM exports WHERE id = ?
	`, id).Scan(&e.ID, &created, &e.Neurons, &e.Inputs, &e.Autonomous.Left, &e.Autonomous.Right, &weights, &deltas)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Export{}, false, nil
		}
		return Export{}, false, err
	}
	e.CreatedAt = time.Unix(0, created).UTC()

	if err := json.Unmarshal(weights, &e.Weights); err != nil {
		return Export{}, false, fmt.Errorf("decode weights %s: %w", id, err)
	}
	if err := json.Unmarshal(deltas, &e.Deltas); err != nil {
		return Export{}, false, fmt.Errorf("decode deltas %s: %w", id, err)
	}
	return e, true, nil
}

// ListExports returns the most recent exports first, at most limit of them.
func (s *SQLiteStore) ListExports(ctx context.Context, limit int) ([]ExportInfo, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, created_at, neurons, inputs, length(weights) + length(deltas)
		FROM exports ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExportInfo
	for rows.Next() {
		var (
			info    ExportInfo
			created int64
		)
		if err := rows.Scan(&info.ID, &created, &info.Neurons, &info.Inputs, &info.Bytes); err != nil {
			return nil, err
		}
		info.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS exports (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			neurons INTEGER NOT NULL,
			inputs INTEGER NOT NULL,
			autonomous_left REAL NOT NULL,
			autonomous_right REAL NOT NULL,
			weights BLOB NOT NULL,
			deltas BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS exports_created_at ON exports (created_at);
	`)
	return err
}
