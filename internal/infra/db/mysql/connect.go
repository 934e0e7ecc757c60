package mysql

import (
	"context"
	"database/sql"
	_ "github.com/go-sql-driver/mysql"
	"time"

	"github.com/bryanwahyu/competeiq/internal/infra/db/sqlstore"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Dialect for MySQL 8
var Dialect = sqlstore.Dialect{
	Name: "mysql",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS companies (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  website_url VARCHAR(2048) NOT NULL,
  product_description TEXT NOT NULL,
  market_category VARCHAR(255) NOT NULL,
  analysis_status VARCHAR(32) NOT NULL,
  scraped_data LONGTEXT NULL,
  user_id VARCHAR(255) NOT NULL,
  created_at DATETIME(6) NOT NULL,
  updated_at DATETIME(6) NOT NULL,
  KEY idx_companies_user (user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS analyses (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  company_id VARCHAR(64) NOT NULL,
  user_id VARCHAR(255) NOT NULL,
  status VARCHAR(32) NOT NULL,
  competitors LONGTEXT NULL,
  market_trends LONGTEXT NULL,
  market_gaps LONGTEXT NULL,
  positioning_strategy VARCHAR(1024) NULL,
  competitive_advantages LONGTEXT NULL,
  error TEXT NULL,
  created_at DATETIME(6) NOT NULL,
  updated_at DATETIME(6) NOT NULL,
  KEY idx_analyses_user_created (user_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS marketing_assets (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  company_id VARCHAR(64) NOT NULL,
  analysis_id VARCHAR(64) NOT NULL,
  user_id VARCHAR(255) NOT NULL,
  script_content TEXT NULL,
  script_url VARCHAR(2048) NULL,
  audio_url VARCHAR(2048) NULL,
  images TEXT NULL,
  duration INT NOT NULL DEFAULT 0,
  style VARCHAR(32) NULL,
  status VARCHAR(32) NOT NULL,
  created_at DATETIME(6) NOT NULL,
  updated_at DATETIME(6) NOT NULL,
  KEY idx_assets_analysis (analysis_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS stage_errors (
  id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  analysis_id VARCHAR(64) NOT NULL,
  stage VARCHAR(64) NOT NULL,
  phase VARCHAR(32) NOT NULL,
  message TEXT NOT NULL,
  details_json TEXT NOT NULL,
  created_at DATETIME(6) NOT NULL,
  KEY idx_stage_errors_analysis (analysis_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
}
