package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/bryanwahyu/competeiq/internal/domain/stageerrors"
)

type StageErrorRepository struct {
	db *sql.DB
	d  Dialect
}

func (r *StageErrorRepository) Save(ctx context.Context, e *domain.StageError) error {
	q := `
INSERT INTO stage_errors
  (analysis_id, stage, phase, message, details_json, created_at)
VALUES (?,?,?,?,?,?)`
	analysisID := dashIfEmpty(e.AnalysisID)
	stage := dashIfEmpty(e.Stage)
	phase := dashIfEmpty(e.Phase)
	msg := dashIfEmpty(e.Message)
	details := e.DetailsJSON
	if strings.TrimSpace(details) == "" {
		details = "{}"
	} else {
		// keep the column valid json; wrap anything else as a string field
		var js any
		if json.Unmarshal([]byte(details), &js) != nil {
			b, _ := json.Marshal(map[string]string{"raw": details})
			details = string(b)
		}
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	if r.d.Returning {
		q += " RETURNING id"
		return r.db.QueryRowContext(ctx, r.d.Rebind(q), analysisID, stage, phase, msg, details, created).Scan(&e.ID)
	}
	res, err := r.db.ExecContext(ctx, r.d.Rebind(q), analysisID, stage, phase, msg, details, created)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// ListByAnalysis returns the errors of one analysis in the order they happened
func (r *StageErrorRepository) ListByAnalysis(ctx context.Context, analysisID string, limit int) ([]*domain.StageError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, analysis_id, stage, phase, message, details_json, created_at
FROM stage_errors
WHERE analysis_id = ?
ORDER BY created_at ASC, id ASC
LIMIT ?`
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), analysisID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.StageError
	for rows.Next() {
		var e domain.StageError
		if err := rows.Scan(&e.ID, &e.AnalysisID, &e.Stage, &e.Phase, &e.Message, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
