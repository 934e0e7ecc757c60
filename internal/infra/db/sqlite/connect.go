package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/bryanwahyu/competeiq/internal/infra/db/sqlstore"
)

// Connect opens (and creates) the database file at path
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// single writer
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Dialect for SQLite
var Dialect = sqlstore.Dialect{
	Name: "sqlite",
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
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
)`,
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
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_user_created ON analyses (user_id, created_at)`,
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
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS stage_errors (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  analysis_id TEXT NOT NULL,
  stage TEXT NOT NULL,
  phase TEXT NOT NULL,
  message TEXT NOT NULL,
  details_json TEXT NOT NULL,
  created_at DATETIME NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_stage_errors_analysis ON stage_errors (analysis_id, created_at)`,
	},
}
