package sqlstore_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
	"github.com/bryanwahyu/competeiq/internal/domain/assets"
	"github.com/bryanwahyu/competeiq/internal/domain/stageerrors"
	"github.com/bryanwahyu/competeiq/internal/infra/db/sqlite"
	"github.com/bryanwahyu/competeiq/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/competeiq/internal/testutil"
)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	ctx := testutil.NewTestContext(t)
	db, err := sqlite.Connect(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlstore.EnsureSchema(ctx, db, sqlite.Dialect))
	// idempotent
	require.NoError(t, sqlstore.EnsureSchema(ctx, db, sqlite.Dialect))
	return sqlstore.New(db, sqlite.Dialect)
}

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestRebind(t *testing.T) {
	d := sqlstore.Dialect{Numbered: true}
	assert.Equal(t, "a = $1 AND b = $2", d.Rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ?", sqlstore.Dialect{}.Rebind("a = ?"))
}

func TestCompanies(t *testing.T) {
	s := newStore(t)
	ctx := testutil.NewTestContext(t)

	c := &analysis.Company{
		ID:                 "c1",
		Name:               "Acme",
		WebsiteURL:         "https://acme.example.com",
		ProductDescription: "Widgets",
		MarketCategory:     "SaaS",
		AnalysisStatus:     analysis.StatusPending,
		UserID:             "alice",
		CreatedAt:          base,
		UpdatedAt:          base,
	}
	require.NoError(t, s.Companies.Create(ctx, c))

	got, err := s.Companies.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, analysis.StatusPending, got.AnalysisStatus)
	assert.True(t, got.CreatedAt.Equal(base))

	require.NoError(t, s.Companies.UpdateStatus(ctx, "c1", analysis.StatusCompleted))
	got, err = s.Companies.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusCompleted, got.AnalysisStatus)

	_, err = s.Companies.Get(ctx, "missing")
	assert.ErrorIs(t, err, analysis.ErrNotFound)
}

func TestAnalyses(t *testing.T) {
	s := newStore(t)
	ctx := testutil.NewTestContext(t)

	require.NoError(t, s.Analyses.Create(ctx, &analysis.Analysis{
		ID: "a1", CompanyID: "c1", UserID: "alice", Status: analysis.StatusPending, CreatedAt: base,
	}))

	got, err := s.Analyses.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusPending, got.Status)
	assert.Empty(t, got.Competitors)

	require.NoError(t, s.Analyses.UpdateStatus(ctx, "a1", analysis.StatusFailed, "boom"))
	got, err = s.Analyses.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)

	fields := analysis.ResultFields{
		Competitors:           `[{"name":"Globex"}]`,
		MarketTrends:          `[]`,
		MarketGaps:            `["Onboarding"]`,
		PositioningStrategy:   "Own the small team segment",
		CompetitiveAdvantages: `["Speed"]`,
	}
	require.NoError(t, s.Analyses.SaveResult(ctx, "a1", analysis.StatusCompleted, fields))
	got, err = s.Analyses.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusCompleted, got.Status)
	assert.Equal(t, fields.Competitors, got.Competitors)
	assert.Equal(t, fields.PositioningStrategy, got.PositioningStrategy)
	assert.Equal(t, fields.CompetitiveAdvantages, got.CompetitiveAdvantages)

	err = s.Analyses.SaveResult(ctx, "missing", analysis.StatusCompleted, fields)
	assert.ErrorIs(t, err, analysis.ErrNotFound)

	_, err = s.Analyses.Get(ctx, "missing")
	assert.ErrorIs(t, err, analysis.ErrNotFound)
}

func TestAnalyses_ListByUser(t *testing.T) {
	s := newStore(t)
	ctx := testutil.NewTestContext(t)

	for i, id := range []analysis.AnalysisID{"a1", "a2", "a3"} {
		require.NoError(t, s.Analyses.Create(ctx, &analysis.Analysis{
			ID: id, CompanyID: "c", UserID: "alice", Status: analysis.StatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.Analyses.Create(ctx, &analysis.Analysis{ID: "b1", CompanyID: "c", UserID: "bob", Status: analysis.StatusPending}))

	page, err := s.Analyses.ListByUser(ctx, "alice", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, analysis.AnalysisID("a3"), page.Data[0].ID)
	assert.Equal(t, analysis.AnalysisID("a2"), page.Data[1].ID)

	page, err = s.Analyses.ListByUser(ctx, "alice", 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, analysis.AnalysisID("a1"), page.Data[0].ID)

	page, err = s.Analyses.ListByUser(ctx, "nobody", 1, 20)
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Equal(t, 0, page.TotalPages)
}

func TestAssets(t *testing.T) {
	s := newStore(t)
	ctx := testutil.NewTestContext(t)

	require.NoError(t, s.Assets.Create(ctx, &assets.MarketingAsset{
		ID: "as1", CompanyID: "c1", AnalysisID: "a1", UserID: "alice",
		ScriptContent: "Hello", ScriptURL: "http://minio/b/assets/as1/script.txt",
		Duration: 30, Style: assets.StyleCasual, Status: assets.StatusScriptGenerated,
	}))

	got, err := s.Assets.Get(ctx, "as1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.ScriptContent)
	assert.Equal(t, assets.StyleCasual, got.Style)
	assert.Equal(t, 30, got.Duration)
	assert.Equal(t, "[]", got.Images)
	assert.Equal(t, assets.StatusScriptGenerated, got.Status)

	_, err = s.Assets.Get(ctx, "missing")
	assert.ErrorIs(t, err, analysis.ErrNotFound)
}

func TestStageErrors(t *testing.T) {
	s := newStore(t)
	ctx := testutil.NewTestContext(t)

	first := &stageerrors.StageError{AnalysisID: "a1", Stage: "competitor_research", Phase: stageerrors.PhaseFallback, Message: "quota", CreatedAt: base}
	require.NoError(t, s.StageErrors.Save(ctx, first))
	assert.NotZero(t, first.ID)

	require.NoError(t, s.StageErrors.Save(ctx, &stageerrors.StageError{
		AnalysisID: "a1", Phase: stageerrors.PhaseStorage, Message: "write failed",
		DetailsJSON: "not json", CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, s.StageErrors.Save(ctx, &stageerrors.StageError{AnalysisID: "other", Message: "x"}))

	list, err := s.StageErrors.ListByAnalysis(ctx, "a1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "competitor_research", list[0].Stage)
	assert.Equal(t, "{}", list[0].DetailsJSON)
	assert.Equal(t, "-", list[1].Stage)
	assert.JSONEq(t, `{"raw":"not json"}`, list[1].DetailsJSON)

	list, err = s.StageErrors.ListByAnalysis(ctx, "a1", 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestHealthCheck(t *testing.T) {
	s := newStore(t)
	assert.NoError(t, s.HealthCheck(testutil.NewTestContext(t)))
}
