package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	domain "github.com/bryanwahyu/competeiq/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
	d  Dialect
}

const analysisColumns = `id, company_id, user_id, status, competitors, market_trends, market_gaps,
       positioning_strategy, competitive_advantages, error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	var a domain.Analysis
	var comp, trends, gaps, strategy, adv, msg sql.NullString
	if err := row.Scan(
		&a.ID, &a.CompanyID, &a.UserID, &a.Status,
		&comp, &trends, &gaps, &strategy, &adv, &msg,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Competitors = comp.String
	a.MarketTrends = trends.String
	a.MarketGaps = gaps.String
	a.PositioningStrategy = strategy.String
	a.CompetitiveAdvantages = adv.String
	a.Error = msg.String
	return &a, nil
}

func (r *AnalysisRepository) Create(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
  (id, company_id, user_id, status, competitors, market_trends, market_gaps,
   positioning_strategy, competitive_advantages, error, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := a.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		a.ID, a.CompanyID, a.UserID, dashIfEmpty(string(a.Status)),
		a.Competitors, a.MarketTrends, a.MarketGaps,
		a.PositioningStrategy, a.CompetitiveAdvantages, a.Error,
		created, updated,
	)
	return err
}

func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	q := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = ?`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, r.d.Rebind(q), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

func (r *AnalysisRepository) UpdateStatus(ctx context.Context, id domain.AnalysisID, status domain.Status, message string) error {
	const q = `UPDATE analyses SET status = ?, error = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q), string(status), message, time.Now().UTC(), id)
	return err
}

// SaveResult writes the report fields and final status in one statement
func (r *AnalysisRepository) SaveResult(ctx context.Context, id domain.AnalysisID, status domain.Status, f domain.ResultFields) error {
	const q = `
UPDATE analyses SET
  status = ?, competitors = ?, market_trends = ?, market_gaps = ?,
  positioning_strategy = ?, competitive_advantages = ?, updated_at = ?
WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		string(status), f.Competitors, f.MarketTrends, f.MarketGaps,
		f.PositioningStrategy, f.CompetitiveAdvantages, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("save result %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListByUser pages through a user's analyses, newest first
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	q := `SELECT ` + analysisColumns + `
FROM analyses WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), userID, pageSize, offset)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	out := []*domain.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM analyses WHERE user_id = ?`), userID).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       out,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}
