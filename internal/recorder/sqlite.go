package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"ExchangeSim/internal/model"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists runs to a SQLite database.
type SQLiteRecorder struct {
	db *sqlx.DB
	mu sync.Mutex
}

type runRow struct {
	RunID     string `db:"run_id"`
	Command   string `db:"command"`
	Seed      int64  `db:"seed"`
	StartedAt int64  `db:"started_at"`
}

type barRow struct {
	RunID  string  `db:"run_id"`
	Date   string  `db:"date"`
	Symbol string  `db:"symbol"`
	Open   float64 `db:"open"`
	High   float64 `db:"high"`
	Low    float64 `db:"low"`
	Close  float64 `db:"close"`
	Volume int64   `db:"volume"`
}

type companyRow struct {
	RunID         string          `db:"run_id"`
	Symbol        string          `db:"symbol"`
	Name          string          `db:"name"`
	Sector        string          `db:"sector"`
	Close         sql.NullFloat64 `db:"close"`
	Volume        sql.NullInt64   `db:"volume"`
	CircuitStatus string          `db:"circuit_status"`
	LastEvent     sql.NullString  `db:"last_event"`
	UpdatedAt     int64           `db:"updated_at"`
}

type eventRow struct {
	RunID   string  `db:"run_id"`
	EventID string  `db:"event_id"`
	Scope   string  `db:"scope"`
	Target  string  `db:"target"`
	Label   string  `db:"label"`
	Impact  float64 `db:"impact"`
	Day     int     `db:"day"`
	Date    string  `db:"date"`
}

type sessionRow struct {
	RunID        string `db:"run_id"`
	Date         string `db:"date"`
	IsOpen       bool   `db:"is_open"`
	Minute       int    `db:"minute"`
	TotalMinutes int    `db:"total_minutes"`
	Advancing    int    `db:"advancing"`
	Declining    int    `db:"declining"`
	Unchanged    int    `db:"unchanged"`
	TotalVolume  int64  `db:"total_volume"`
	RecordedAt   int64  `db:"recorded_at"`
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps in-memory databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id     TEXT PRIMARY KEY,
			command    TEXT,
			seed       INTEGER,
			started_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS bars (
			run_id TEXT NOT NULL,
			date   TEXT NOT NULL,
			symbol TEXT NOT NULL,
			open   REAL,
			high   REAL,
			low    REAL,
			close  REAL,
			volume INTEGER,
			PRIMARY KEY (run_id, date, symbol)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bars_symbol ON bars(symbol, date)`,

		`CREATE TABLE IF NOT EXISTS companies (
			run_id         TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			name           TEXT,
			sector         TEXT,
			close          REAL,
			volume         INTEGER,
			circuit_status TEXT,
			last_event     TEXT,
			updated_at     INTEGER NOT NULL,
			PRIMARY KEY (run_id, symbol)
		)`,

		`CREATE TABLE IF NOT EXISTS events (
			run_id   TEXT NOT NULL,
			event_id TEXT NOT NULL,
			scope    TEXT,
			target   TEXT,
			label    TEXT,
			impact   REAL,
			day      INTEGER,
			date     TEXT,
			PRIMARY KEY (run_id, event_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(date)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL,
			date          TEXT,
			is_open       INTEGER,
			minute        INTEGER,
			total_minutes INTEGER,
			advancing     INTEGER,
			declining     INTEGER,
			unchanged     INTEGER,
			total_volume  INTEGER,
			recorded_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_run ON sessions(run_id, date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) StartRun(run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := r.db.NamedExec(`INSERT OR REPLACE INTO runs (run_id, command, seed, started_at)
		VALUES (:run_id, :command, :seed, :started_at)`,
		runRow{RunID: run.ID, Command: run.Command, Seed: int64(run.Seed), StartedAt: started.UnixNano()},
	)
	return err
}

// RecordBars stores bars in one transaction. Bars already stored for the run are kept.
func (r *SQLiteRecorder) RecordBars(runID string, bars []model.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.inTx(`INSERT OR IGNORE INTO bars
		(run_id, date, symbol, open, high, low, close, volume)
		VALUES (:run_id, :date, :symbol, :open, :high, :low, :close, :volume)`,
		len(bars), func(i int) any {
			b := bars[i]
			return barRow{
				RunID:  runID,
				Date:   b.Date.Format(model.DateLayout),
				Symbol: b.Symbol,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			}
		})
}

// RecordCompanies upserts the latest snapshot of every company.
func (r *SQLiteRecorder) RecordCompanies(runID string, companies map[string]*model.CompanyProfile) error {
	if len(companies) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	symbols := make([]string, 0, len(companies))
	for sym := range companies {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	now := time.Now().Unix()

	return r.inTx(`INSERT OR REPLACE INTO companies
		(run_id, symbol, name, sector, close, volume, circuit_status, last_event, updated_at)
		VALUES (:run_id, :symbol, :name, :sector, :close, :volume, :circuit_status, :last_event, :updated_at)`,
		len(symbols), func(i int) any {
			c := companies[symbols[i]]
			row := companyRow{
				RunID:         runID,
				Symbol:        symbols[i],
				Name:          c.Name,
				Sector:        c.Sector,
				CircuitStatus: string(c.CircuitStatus),
				UpdatedAt:     now,
			}
			if p, ok := c.PrevClose(); ok {
				row.Close = sql.NullFloat64{Float64: p, Valid: true}
			}
			if c.Volume != nil {
				row.Volume = sql.NullInt64{Int64: *c.Volume, Valid: true}
			}
			if c.LastEvent != nil {
				row.LastEvent = sql.NullString{String: c.LastEvent.Label, Valid: true}
			}
			return row
		})
}

// RecordEvents stores events; events already stored for the run are skipped.
func (r *SQLiteRecorder) RecordEvents(runID string, events []model.MarketEvent) error {
	if len(events) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.inTx(`INSERT OR IGNORE INTO events
		(run_id, event_id, scope, target, label, impact, day, date)
		VALUES (:run_id, :event_id, :scope, :target, :label, :impact, :day, :date)`,
		len(events), func(i int) any {
			e := events[i]
			return eventRow{
				RunID:   runID,
				EventID: e.ID,
				Scope:   string(e.Scope),
				Target:  e.Target,
				Label:   e.Label,
				Impact:  e.Impact,
				Day:     e.Day,
				Date:    e.Date.Format(model.DateLayout),
			}
		})
}

func (r *SQLiteRecorder) RecordSession(runID string, status model.MarketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.NamedExec(`INSERT INTO sessions
		(run_id, date, is_open, minute, total_minutes, advancing, declining, unchanged, total_volume, recorded_at)
		VALUES (:run_id, :date, :is_open, :minute, :total_minutes, :advancing, :declining, :unchanged, :total_volume, :recorded_at)`,
		sessionRow{
			RunID:        runID,
			Date:         status.Date.Format(model.DateLayout),
			IsOpen:       status.IsOpen,
			Minute:       status.Minute,
			TotalMinutes: status.TotalMinutes,
			Advancing:    status.Advancing,
			Declining:    status.Declining,
			Unchanged:    status.Unchanged,
			TotalVolume:  status.TotalVolume,
			RecordedAt:   time.Now().Unix(),
		},
	)
	return err
}

// LoadBars returns the bars of a run ordered by date and symbol.
func (r *SQLiteRecorder) LoadBars(runID string) ([]model.DailyBar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rows []barRow
	err := r.db.Select(&rows, `SELECT run_id, date, symbol, open, high, low, close, volume
		FROM bars WHERE run_id = ? ORDER BY date, symbol`, runID)
	if err != nil {
		return nil, fmt.Errorf("select bars: %w", err)
	}

	bars := make([]model.DailyBar, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(model.DateLayout, row.Date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", row.Date, err)
		}
		bars = append(bars, model.DailyBar{
			Date:   date,
			Symbol: row.Symbol,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	return bars, nil
}

// LatestRun returns the most recently started run, or "" when none exists.
func (r *SQLiteRecorder) LatestRun() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	err := r.db.Get(&id, `SELECT run_id FROM runs ORDER BY started_at DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// inTx executes a named statement once per row inside a transaction.
func (r *SQLiteRecorder) inTx(query string, n int, row func(i int) any) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareNamed(query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(row(i)); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
