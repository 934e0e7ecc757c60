package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
	domain "github.com/bryanwahyu/competeiq/internal/domain/assets"
)

type AssetRepository struct {
	db *sql.DB
	d  Dialect
}

func (r *AssetRepository) Create(ctx context.Context, a *domain.MarketingAsset) error {
	const q = `
INSERT INTO marketing_assets
  (id, company_id, analysis_id, user_id, script_content, script_url, audio_url, images,
   duration, style, status, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := a.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	images := a.Images
	if images == "" {
		images = "[]"
	}
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q),
		a.ID, a.CompanyID, a.AnalysisID, a.UserID,
		a.ScriptContent, a.ScriptURL, a.AudioURL, images,
		a.Duration, string(a.Style), dashIfEmpty(a.Status), created, updated,
	)
	return err
}

func (r *AssetRepository) Get(ctx context.Context, id domain.AssetID) (*domain.MarketingAsset, error) {
	const q = `
SELECT id, company_id, analysis_id, user_id, script_content, script_url, audio_url, images,
       duration, style, status, created_at, updated_at
FROM marketing_assets WHERE id = ?`
	var a domain.MarketingAsset
	var script, scriptURL, audioURL, images, style sql.NullString
	err := r.db.QueryRowContext(ctx, r.d.Rebind(q), id).Scan(
		&a.ID, &a.CompanyID, &a.AnalysisID, &a.UserID,
		&script, &scriptURL, &audioURL, &images,
		&a.Duration, &style, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, analysis.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.ScriptContent = script.String
	a.ScriptURL = scriptURL.String
	a.AudioURL = audioURL.String
	a.Images = images.String
	a.Style = domain.Style(style.String)
	return &a, nil
}
