//
//
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	// Registers the pure-Go "sqlite" driver.
	_ "github.com/glebarez/go-sqlite"

	"github.com/lng-monitor/relay/internal/snapshot"
)

const insertColumns = 7

var (
	// ErrInvalidTable is returned for table names that are not plain identifiers.
	ErrInvalidTable = errors.New("invalid table name")

	tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Statistics summarizes one series.
type Statistics struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// Series is the recorded history of one parameter.
type Series struct {
	Name       string     `json:"name"`
	Key        string     `json:"key"`
	Unit       string     `json:"unit"`
	Values     []float64  `json:"values"`
	Statistics Statistics `json:"statistics"`
}

// Result is the recorded history of one instrument, oldest first.
type Result struct {
	EquipmentID int         `json:"equipmentId"`
	Times       []time.Time `json:"timeData"`
	Series      []Series    `json:"series"`
}

// Store persists snapshots in a SQL table, one row per parameter value.
type Store struct {
	db    *sql.DB
	table string
}

// Open opens a SQLite database. Writes are serialized on one connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}
	return db, nil
}

// NewStore creates a store over db using table.
func NewStore(db *sql.DB, table string) (*Store, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &Store{db: db, table: table}, nil
}

// Init creates the table and its index if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			equipment_id INTEGER NOT NULL,
			param_key TEXT NOT NULL,
			label TEXT NOT NULL,
			unit TEXT NOT NULL,
			value REAL NOT NULL,
			status TEXT NOT NULL,
			recorded_at INTEGER NOT NULL
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_equipment_time ON %s (equipment_id, recorded_at)`, s.table, s.table),
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize history table %s: %w", s.table, err)
		}
	}
	return nil
}

// Write inserts every parameter value of snap in one statement and returns
// the number of rows written.
func (s *Store) Write(ctx context.Context, snap snapshot.Snapshot) (int, error) {
	rows := 0
	for _, eq := range snap {
		rows += len(eq.Parameters)
	}
	if rows == 0 {
		return 0, nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.table)
	b.WriteString(" (equipment_id, param_key, label, unit, value, status, recorded_at) VALUES ")

	args := make([]any, 0, rows*insertColumns)
	for _, eq := range snap {
		recordedAt := eq.LastUpdate.UnixMilli()
		for _, p := range eq.Parameters {
			if len(args) > 0 {
				b.WriteString(",")
			}
			b.WriteString("(?,?,?,?,?,?,?)")
			args = append(args, eq.ID, p.Key, p.Label, p.Unit, p.Value, string(eq.Status), recordedAt)
		}
	}

	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		return 0, fmt.Errorf("failed to write snapshot: %w", err)
	}
	return rows, nil
}

// Series returns the last limit recorded snapshots of one instrument, oldest
// first, one series per parameter key. A limit <= 0 returns everything.
func (s *Store) Series(ctx context.Context, equipmentID, limit int) (*Result, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	query := fmt.Sprintf(`SELECT param_key, label, unit, value, recorded_at FROM %[1]s
		WHERE equipment_id = ? AND recorded_at IN (
			SELECT DISTINCT recorded_at FROM %[1]s WHERE equipment_id = ? ORDER BY recorded_at DESC LIMIT ?
		)
		ORDER BY recorded_at ASC, rowid ASC`, s.table)

	rows, err := s.db.QueryContext(ctx, query, equipmentID, equipmentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for equipment %d: %w", equipmentID, err)
	}
	defer rows.Close()

	result := &Result{EquipmentID: equipmentID, Times: []time.Time{}, Series: []Series{}}
	index := make(map[string]int)
	var last int64 = math.MinInt64

	for rows.Next() {
		var (
			key, label, unit string
			value            float64
			recordedAt       int64
		)
		if err := rows.Scan(&key, &label, &unit, &value, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		if recordedAt != last {
			result.Times = append(result.Times, time.UnixMilli(recordedAt).UTC())
			last = recordedAt
		}

		i, ok := index[key]
		if !ok {
			i = len(result.Series)
			index[key] = i
			result.Series = append(result.Series, Series{Name: label, Key: key, Unit: unit})
		}
		result.Series[i].Values = append(result.Series[i].Values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	for i := range result.Series {
		result.Series[i].Statistics = summarize(result.Series[i].Values)
	}
	return result, nil
}

func summarize(values []float64) Statistics {
	if len(values) == 0 {
		return Statistics{}
	}
	stats := Statistics{Min: values[0], Max: values[0], Count: len(values)}
	sum := 0.0
	for _, v := range values {
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
		sum += v
	}
	stats.Avg = snapshot.Round(sum/float64(len(values)), 3)
	return stats
}
