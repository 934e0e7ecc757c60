package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/competeiq/internal/domain/analysis"
)

type CompanyRepository struct {
	db *sql.DB
	d  Dialect
}

func (r *CompanyRepository) Create(ctx context.Context, c *domain.Company) error {
	const q = `
INSERT INTO companies
  (id, name, website_url, product_description, market_category, analysis_status, scraped_data, user_id, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := c.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		c.ID, c.Name, c.WebsiteURL, c.ProductDescription, c.MarketCategory,
		dashIfEmpty(string(c.AnalysisStatus)), c.ScrapedData, c.UserID, created, updated,
	)
	return err
}

func (r *CompanyRepository) Get(ctx context.Context, id domain.CompanyID) (*domain.Company, error) {
	const q = `
SELECT id, name, website_url, product_description, market_category, analysis_status, scraped_data, user_id, created_at, updated_at
FROM companies WHERE id = ?`
	var c domain.Company
	var scraped sql.NullString
	err := r.db.QueryRowContext(ctx, r.d.Rebind(q), id).Scan(
		&c.ID, &c.Name, &c.WebsiteURL, &c.ProductDescription, &c.MarketCategory,
		&c.AnalysisStatus, &scraped, &c.UserID, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.ScrapedData = scraped.String
	return &c, nil
}

func (r *CompanyRepository) UpdateStatus(ctx context.Context, id domain.CompanyID, status domain.Status) error {
	const q = `UPDATE companies SET analysis_status = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q), string(status), time.Now().UTC(), id)
	return err
}
