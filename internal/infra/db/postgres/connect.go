package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/bryanwahyu/competeiq/internal/infra/db/sqlstore"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Dialect for PostgreSQL, '$n' placeholders and RETURNING ids
var Dialect = sqlstore.Dialect{
	Name:      "postgres",
	Numbered:  true,
	Returning: true,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS companies (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  website_url TEXT NOT NULL,
  product_description TEXT NOT NULL,
  market_category TEXT NOT NULL,
  analysis_status TEXT NOT NULL,
  scraped_data TEXT,
  user_id TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_companies_user ON companies (user_id)`,
		`CREATE TABLE IF NOT EXISTS analyses (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL,
  competitors TEXT,
  market_trends TEXT,
  market_gaps TEXT,
  positioning_strategy TEXT,
  competitive_advantages TEXT,
  error TEXT,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_user_created ON analyses (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS marketing_assets (
  id TEXT PRIMARY KEY,
  company_id TEXT NOT NULL,
  analysis_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  script_content TEXT,
  script_url TEXT,
  audio_url TEXT,
  images TEXT,
  duration INTEGER NOT NULL DEFAULT 0,
  style TEXT,
  status TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS stage_errors (
  id BIGSERIAL PRIMARY KEY,
  analysis_id TEXT NOT NULL,
  stage TEXT NOT NULL,
  phase TEXT NOT NULL,
  message TEXT NOT NULL,
  details_json TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_stage_errors_analysis ON stage_errors (analysis_id, created_at)`,
	},
}
