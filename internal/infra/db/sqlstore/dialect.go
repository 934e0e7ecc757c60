package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect describes what differs between the supported SQL backends.
// Queries are written with '?' placeholders and rebound per dialect.
type Dialect struct {
	Name string
	// Numbered switches '?' to $1, $2, ...
	Numbered bool
	// Returning means inserts report generated ids through RETURNING instead of LastInsertId.
	Returning bool
	Schema    []string
}

// Rebind rewrites '?' placeholders for the dialect
func (d Dialect) Rebind(q string) string {
	if !d.Numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// EnsureSchema creates the tables when they do not exist
func EnsureSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range d.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s schema: %w", d.Name, err)
		}
	}
	return nil
}

// Store bundles the repositories sharing one connection pool
type Store struct {
	DB          *sql.DB
	Dialect     Dialect
	Companies   *CompanyRepository
	Analyses    *AnalysisRepository
	Assets      *AssetRepository
	StageErrors *StageErrorRepository
}

func New(db *sql.DB, d Dialect) *Store {
	return &Store{
		DB:          db,
		Dialect:     d,
		Companies:   &CompanyRepository{db: db, d: d},
		Analyses:    &AnalysisRepository{db: db, d: d},
		Assets:      &AssetRepository{db: db, d: d},
		StageErrors: &StageErrorRepository{db: db, d: d},
	}
}

// HealthCheck pings the database
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func dashIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
