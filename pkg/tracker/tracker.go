package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/galen-ai/galen/pkg/models"
)

// Tracker records and queries token usage.
type Tracker interface {
	// Record stores a usage record.
	Record(ctx context.Context, rec models.UsageRecord) error
	// QueryByDomain returns usage records for a domain since a given time.
	QueryByDomain(ctx context.Context, domain string, since time.Time) ([]models.UsageRecord, error)
	// TotalByDomain returns total tokens used by a domain since a given time.
	TotalByDomain(ctx context.Context, domain string, since time.Time) (int64, error)
	// TotalByDomainAndModel returns total tokens used by a domain and model since a given time.
	TotalByDomainAndModel(ctx context.Context, domain, model string, since time.Time) (int64, error)
	// Summary returns aggregated usage summaries, optionally filtered by domain.
	Summary(ctx context.Context, domain string) ([]models.UsageSummary, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	domain TEXT NOT NULL,
	model TEXT NOT NULL,
	prompt_tokens INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	total_tokens INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_usage_domain_time ON usage_records(domain, created_at);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores a usage record.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.UsageRecord) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO usage_records (domain, model, prompt_tokens, completion_tokens, total_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Domain, rec.Model, rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// QueryByDomain returns usage records for a domain since a given time.
func (t *SQLiteTracker) QueryByDomain(ctx context.Context, domain string, since time.Time) ([]models.UsageRecord, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, domain, model, prompt_tokens, completion_tokens, total_tokens, created_at
		 FROM usage_records WHERE domain = ? AND created_at >= ? ORDER BY created_at DESC`,
		domain, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		if err := rows.Scan(&r.ID, &r.Domain, &r.Model, &r.PromptTokens, &r.CompletionTokens, &r.TotalTokens, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// TotalByDomain returns total tokens used by a domain since a given time.
func (t *SQLiteTracker) TotalByDomain(ctx context.Context, domain string, since time.Time) (int64, error) {
	var total int64
	err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_tokens), 0) FROM usage_records WHERE domain = ? AND created_at >= ?`,
		domain, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total usage: %w", err)
	}
	return total, nil
}

// TotalByDomainAndModel returns total tokens used by a domain and model since a given time.
func (t *SQLiteTracker) TotalByDomainAndModel(ctx context.Context, domain, model string, since time.Time) (int64, error) {
	var total int64
	err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_tokens), 0) FROM usage_records WHERE domain = ? AND model = ? AND created_at >= ?`,
		domain, model, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total usage by model: %w", err)
	}
	return total, nil
}

// Summary returns aggregated usage grouped by domain and model.
func (t *SQLiteTracker) Summary(ctx context.Context, domain string) ([]models.UsageSummary, error) {
	query := `SELECT domain, model, COUNT(*), SUM(prompt_tokens), SUM(completion_tokens), SUM(total_tokens)
		 FROM usage_records`
	var args []any
	if domain != "" {
		query += ` WHERE domain = ?`
		args = append(args, domain)
	}
	query += ` GROUP BY domain, model ORDER BY domain, model`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var s models.UsageSummary
		if err := rows.Scan(&s.Domain, &s.Model, &s.RequestCount, &s.TotalPrompt, &s.TotalCompletion, &s.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// CostReport aggregates usage by domain and model and applies pricing.
// Models without a pricing entry report zero cost.
func (t *SQLiteTracker) CostReport(ctx context.Context, domain string, pricing []models.ModelPricing) ([]models.CostReport, error) {
	byModel := make(map[string]models.ModelPricing, len(pricing))
	for _, p := range pricing {
		byModel[p.Model] = p
	}

	query := `SELECT domain, model, COUNT(*), SUM(prompt_tokens), SUM(completion_tokens), SUM(total_tokens)
		 FROM usage_records`
	var args []any
	if domain != "" {
		query += ` WHERE domain = ?`
		args = append(args, domain)
	}
	query += ` GROUP BY domain, model ORDER BY domain, model`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cost report: %w", err)
	}
	defer rows.Close()

	var reports []models.CostReport
	for rows.Next() {
		var r models.CostReport
		if err := rows.Scan(&r.Domain, &r.Model, &r.RequestCount, &r.PromptTokens, &r.CompletionTokens, &r.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan cost report: %w", err)
		}
		if p, ok := byModel[r.Model]; ok {
			r.EstimatedCost = float64(r.PromptTokens)/1000*p.PromptCost + float64(r.CompletionTokens)/1000*p.CompletionCost
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
