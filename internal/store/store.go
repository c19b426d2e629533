// Package store persists end-of-run results into a SQLite database so
// parameter sweeps can be compared across runs.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/signalsfoundry/hapnet-simulator/core"
	"github.com/signalsfoundry/hapnet-simulator/diag"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	label TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS flow_stats (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	src TEXT NOT NULL,
	dst TEXT NOT NULL,
	tx_packets INTEGER NOT NULL,
	rx_packets INTEGER NOT NULL,
	rx_dropped INTEGER NOT NULL,
	loss_ratio REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS link_budget (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	link TEXT NOT NULL,
	fspl_db REAL NOT NULL,
	atmospheric_db REAL NOT NULL,
	eirp_dbw REAL NOT NULL,
	received_power_dbw REAL NOT NULL
);
`

// ResultsStore writes per-run flow statistics and link-budget figures.
type ResultsStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the results database at path.
func Open(path string) (*ResultsStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create results schema: %w", err)
	}
	return &ResultsStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *ResultsStore) Close() error { return s.db.Close() }

// BudgetRow pairs a link name with its computed budget.
type BudgetRow struct {
	Link   string
	Budget core.LinkBudget
}

// SaveRun records one completed run and returns its row ID.
func (s *ResultsStore) SaveRun(startedAt time.Time, label string, flows []diag.FlowReport, budgets []BudgetRow) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin results tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("INSERT INTO runs (started_at, label) VALUES (?, ?)",
		startedAt.UTC().Format(time.RFC3339), label)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for _, f := range flows {
		_, err := tx.Exec(
			"INSERT INTO flow_stats (run_id, src, dst, tx_packets, rx_packets, rx_dropped, loss_ratio) VALUES (?, ?, ?, ?, ?, ?, ?)",
			runID, string(f.Key.Src), string(f.Key.Dst),
			f.Counters.TxPackets, f.Counters.RxPackets, f.Counters.RxDropped, f.LossRatio,
		)
		if err != nil {
			return 0, fmt.Errorf("insert flow stats: %w", err)
		}
	}

	for _, b := range budgets {
		_, err := tx.Exec(
			"INSERT INTO link_budget (run_id, link, fspl_db, atmospheric_db, eirp_dbw, received_power_dbw) VALUES (?, ?, ?, ?, ?, ?)",
			runID, b.Link, b.Budget.FSPLdB, b.Budget.AtmosphericDB, b.Budget.EIRPdBW, b.Budget.ReceivedPowerDBW,
		)
		if err != nil {
			return 0, fmt.Errorf("insert link budget: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit results: %w", err)
	}
	return runID, nil
}
