// Package history keeps exported daily reports in SQLite so usage survives
// after the source logs are rotated away.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zzfadi/CodexBar-sub002/internal/core"
)

const sqliteDSNParams = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: creating DB dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+sqliteDSNParams)
	if err != nil {
		return nil, fmt.Errorf("history: opening DB: %w", err)
	}
	// Exports are short batch transactions from one process.
	db.SetMaxOpenConns(1)

	store := NewStore(db)
	if err := store.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_usage (
			provider_id TEXT NOT NULL,
			day TEXT NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			cache_read_tokens INTEGER NOT NULL,
			cache_creation_tokens INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			cost_usd REAL,
			models TEXT NOT NULL,
			exported_at TEXT NOT NULL,
			PRIMARY KEY (provider_id, day)
		);`,
		`CREATE TABLE IF NOT EXISTS daily_model_usage (
			provider_id TEXT NOT NULL,
			day TEXT NOT NULL,
			model TEXT NOT NULL,
			total_tokens INTEGER NOT NULL,
			cost_usd REAL,
			PRIMARY KEY (provider_id, day, model)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_daily_usage_day ON daily_usage(day);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("history: init schema: %w", err)
		}
	}
	return nil
}

// DailyRow is one persisted day of one provider.
type DailyRow struct {
	Provider            core.ProviderID
	Day                 string
	InputTokens         int64
	OutputTokens        int64
	CacheReadTokens     int64
	CacheCreationTokens int64
	TotalTokens         int64
	CostUSD             *float64
	Models              []string
	ExportedAt          time.Time
}

// ExportReport upserts every day of the report. Days already stored are
// replaced wholesale, including their model breakdowns. It returns the
// number of days written.
func (s *Store) ExportReport(ctx context.Context, provider core.ProviderID, report core.DailyReport) (int, error) {
	now := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range report.Data {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO daily_usage (
				provider_id, day, input_tokens, output_tokens, cache_read_tokens,
				cache_creation_tokens, total_tokens, cost_usd, models, exported_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(provider_id, day) DO UPDATE SET
				input_tokens = excluded.input_tokens,
				output_tokens = excluded.output_tokens,
				cache_read_tokens = excluded.cache_read_tokens,
				cache_creation_tokens = excluded.cache_creation_tokens,
				total_tokens = excluded.total_tokens,
				cost_usd = excluded.cost_usd,
				models = excluded.models,
				exported_at = excluded.exported_at
		`,
			string(provider),
			e.Date,
			e.InputTokens,
			e.OutputTokens,
			e.CacheReadTokens,
			e.CacheCreationTokens,
			e.TotalTokens,
			nullableFloat64(e.CostUSD),
			strings.Join(e.ModelsUsed, ","),
			now,
		); err != nil {
			return 0, fmt.Errorf("history: upsert %s %s: %w", provider, e.Date, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_model_usage WHERE provider_id = ? AND day = ?`, string(provider), e.Date); err != nil {
			return 0, fmt.Errorf("history: clear breakdowns %s %s: %w", provider, e.Date, err)
		}
		for _, b := range e.ModelBreakdowns {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO daily_model_usage (provider_id, day, model, total_tokens, cost_usd)
				VALUES (?, ?, ?, ?, ?)
			`, string(provider), e.Date, b.ModelName, b.TotalTokens, nullableFloat64(b.CostUSD)); err != nil {
				return 0, fmt.Errorf("history: insert breakdown %s %s %s: %w", provider, e.Date, b.ModelName, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit tx: %w", err)
	}
	return len(report.Data), nil
}

// DailyRows returns stored days for provider in [sinceKey, untilKey], oldest
// first.
func (s *Store) DailyRows(ctx context.Context, provider core.ProviderID, sinceKey, untilKey string) ([]DailyRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens,
			total_tokens, cost_usd, models, exported_at
		FROM daily_usage
		WHERE provider_id = ? AND day >= ? AND day <= ?
		ORDER BY day
	`, string(provider), sinceKey, untilKey)
	if err != nil {
		return nil, fmt.Errorf("history: query daily rows: %w", err)
	}
	defer rows.Close()

	var out []DailyRow
	for rows.Next() {
		r := DailyRow{Provider: provider}
		var cost sql.NullFloat64
		var models, exportedAt string
		if err := rows.Scan(&r.Day, &r.InputTokens, &r.OutputTokens, &r.CacheReadTokens,
			&r.CacheCreationTokens, &r.TotalTokens, &cost, &models, &exportedAt); err != nil {
			return nil, fmt.Errorf("history: scan daily row: %w", err)
		}
		if cost.Valid {
			v := cost.Float64
			r.CostUSD = &v
		}
		if models != "" {
			r.Models = strings.Split(models, ",")
		}
		if ts, err := time.Parse(time.RFC3339Nano, exportedAt); err == nil {
			r.ExportedAt = ts
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate daily rows: %w", err)
	}
	return out, nil
}

// ModelTotals returns the stored per-model token totals for one day.
func (s *Store) ModelTotals(ctx context.Context, provider core.ProviderID, day string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, total_tokens FROM daily_model_usage WHERE provider_id = ? AND day = ?
	`, string(provider), day)
	if err != nil {
		return nil, fmt.Errorf("history: query model totals: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var model string
		var total int64
		if err := rows.Scan(&model, &total); err != nil {
			return nil, fmt.Errorf("history: scan model total: %w", err)
		}
		out[model] = total
	}
	return out, rows.Err()
}

func nullableFloat64(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
