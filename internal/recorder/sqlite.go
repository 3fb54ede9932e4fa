package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"QuantSentinel/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets readers query history while refreshes write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			symbol      TEXT NOT NULL,
			source      TEXT,
			minute_bars INTEGER,
			buckets     INTEGER,
			signals     INTEGER,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_ts ON runs(symbol, started_at)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol      TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			direction   TEXT NOT NULL,
			price       REAL NOT NULL,
			recorded_at INTEGER NOT NULL,
			UNIQUE(symbol, timestamp, direction)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol_ts ON signals(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS indicator_rows (
			symbol      TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			open        REAL,
			high        REAL,
			low         REAL,
			close       REAL,
			volume      REAL,
			ma_short    REAL,
			ma_long     REAL,
			rsi         REAL,
			ema_fast    REAL,
			ema_slow    REAL,
			macd        REAL,
			macd_signal REAL,
			macd_hist   REAL,
			PRIMARY KEY (symbol, timestamp)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(ctx context.Context, run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO runs
		(id, symbol, source, minute_bars, buckets, signals, started_at, finished_at, error)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Symbol, run.Source, run.MinuteBars, run.Buckets, run.Signals,
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Err,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordSignals(ctx context.Context, symbol string, signals []model.Signal) (int, error) {
	if len(signals) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO signals
		(symbol, timestamp, direction, price, recorded_at) VALUES (?,?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	added := 0
	for _, s := range signals {
		res, err := stmt.ExecContext(ctx, symbol, s.Time.Unix(), string(s.Direction), s.Price, now)
		if err != nil {
			return 0, fmt.Errorf("insert signal: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}

func (r *SQLiteRecorder) RecordIndicators(ctx context.Context, symbol string, rows []model.IndicatorRow) error {
	if len(rows) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO indicator_rows
		(symbol, timestamp, open, high, low, close, volume,
		 ma_short, ma_long, rsi, ema_fast, ema_slow, macd, macd_signal, macd_hist)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx, symbol, row.Time.Unix(),
			row.Open, row.High, row.Low, row.Close, row.Volume,
			nullable(row.MAShort), nullable(row.MALong), nullable(row.RSI),
			row.EMAFast, row.EMASlow, row.MACD, row.MACDSignal, row.MACDHist,
		)
		if err != nil {
			return fmt.Errorf("upsert indicator row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecentSignals(ctx context.Context, symbol string, limit int) ([]model.Signal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT timestamp, direction, price FROM signals
		WHERE symbol = ? ORDER BY timestamp DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []model.Signal
	for rows.Next() {
		var (
			ts  int64
			dir string
			s   model.Signal
		)
		if err := rows.Scan(&ts, &dir, &s.Price); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		s.Time = time.Unix(ts, 0).UTC()
		s.Direction = model.Direction(dir)
		if !s.Direction.Valid() {
			return nil, fmt.Errorf("%w: stored signal at %d has direction %q", model.ErrInvalidInput, ts, dir)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}

// nullable stores an undefined indicator cell as NULL.
func nullable(v model.Value) any {
	if v.IsNone() {
		return nil
	}
	return v.Unwrap()
}
