package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/competeiq/internal/application/pipeline"
	"github.com/bryanwahyu/competeiq/internal/application/progress"
	"github.com/bryanwahyu/competeiq/internal/domain/ai"
	domain "github.com/bryanwahyu/competeiq/internal/domain/analysis"
	"github.com/bryanwahyu/competeiq/internal/domain/stageerrors"
	"github.com/bryanwahyu/competeiq/internal/testutil"
)

type counters struct {
	started, ok, failed, degraded int
}

func (c *counters) RunStarted() { c.started++ }
func (c *counters) RunFinished(failed bool) {
	if failed {
		c.failed++
	} else {
		c.ok++
	}
}
func (c *counters) StageDegraded() { c.degraded++ }

type fixture struct {
	svc       *Service
	companies *testutil.MemoryCompanies
	analyses  *testutil.MemoryAnalyses
	errs      *testutil.MemoryStageErrors
	notifier  *testutil.MockNotifier
	counters  *counters
	agents    map[string]*testutil.MockAgent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		companies: testutil.NewMemoryCompanies(),
		analyses:  testutil.NewMemoryAnalyses(),
		errs:      testutil.NewMemoryStageErrors(),
		notifier:  testutil.NewMockNotifier(),
		counters:  &counters{},
		agents: map[string]*testutil.MockAgent{
			"web":   testutil.NewMockAgent("web_scraping_agent", testutil.OverviewReply),
			"comp":  testutil.NewMockAgent("competitor_research_agent", testutil.CompetitorsReply),
			"trend": testutil.NewMockAgent("trend_prediction_agent", testutil.TrendsReply),
			"pos":   testutil.NewMockAgent("market_positioning_agent", testutil.PositioningReply),
		},
	}
	tracker := progress.NewTracker()
	runner := &pipeline.Runner{
		Agents: pipeline.Agents{
			WebScraping:        f.agents["web"],
			CompetitorResearch: f.agents["comp"],
			TrendPrediction:    f.agents["trend"],
			MarketPositioning:  f.agents["pos"],
		},
		Tracker: tracker,
	}
	tasks := NewTaskRegistry(context.Background())
	t.Cleanup(tasks.Wait)

	f.svc = &Service{
		Companies:   f.companies,
		Repo:        f.analyses,
		StageErrors: f.errs,
		Runner:      runner,
		Tracker:     tracker,
		Notifier:    f.notifier,
		Tasks:       tasks,
		Recorder:    f.counters,
		Clock:       testutil.FixedClock{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	runner.OnDegraded = f.svc.RecordDegraded
	return f
}

func validCommand() SubmitCommand {
	p := testutil.NewTestProfile()
	return SubmitCommand{
		Name:               p.Name,
		WebsiteURL:         p.WebsiteURL,
		ProductDescription: p.ProductDescription,
		MarketCategory:     p.MarketCategory,
		UserName:           "alice",
	}
}

func waitTask(t *testing.T, task *Task) {
	t.Helper()
	select {
	case <-task.Done():
	case <-time.After(testutil.TestTimeout):
		t.Fatal("task did not finish")
	}
}

func TestSubmit_RunsToCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.NewTestContext(t)

	res, task, err := f.svc.Submit(ctx, validCommand())
	require.NoError(t, err)
	assert.Equal(t, "started", res.Status)
	assert.Equal(t, 120, res.EstimatedDuration)
	assert.NotEmpty(t, res.AnalysisID)
	assert.NotEmpty(t, res.CompanyID)

	waitTask(t, task)
	require.NoError(t, task.Err())
	assert.Equal(t, TaskDone, task.State())

	a, err := f.analyses.Get(ctx, res.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, a.Status)
	assert.Equal(t, "alice", a.UserID)
	assert.JSONEq(t, `["Onboarding"]`, a.MarketGaps)

	c, err := f.companies.Get(ctx, res.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, c.AnalysisStatus)

	events := f.notifier.EventsFor(res.AnalysisID)
	require.Len(t, events, 8)
	assert.Equal(t, domain.Event{Stage: domain.StageWebScraping, Progress: 0, Status: domain.StageInProgress, Message: "Step web_scraping in_progress"}, events[0])
	assert.Equal(t, domain.StageMarketPositioning, events[7].Stage)

	view, err := f.svc.Progress(ctx, res.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, view.Status)
	assert.Equal(t, 100, view.Progress)
	assert.Equal(t, domain.CurrentStepCompleted, view.CurrentStep)

	rep, err := f.svc.Report(ctx, res.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", rep.Company.Name)
	assert.Equal(t, "Globex", rep.Competitors[0].Name)
	assert.Equal(t, "Own the small team segment", rep.PositioningStrategy)

	assert.Equal(t, 1, f.counters.started)
	assert.Equal(t, 1, f.counters.ok)
}

func TestSubmit_DefaultUser(t *testing.T) {
	f := newFixture(t)
	cmd := validCommand()
	cmd.UserName = "  "

	res, task, err := f.svc.Submit(context.Background(), cmd)
	require.NoError(t, err)
	waitTask(t, task)

	a, err := f.analyses.Get(context.Background(), res.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultUserID, a.UserID)
	assert.NotContains(t, f.agents["pos"].GetLastTask().Prompt, "Analysis requested by")
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	cmd := validCommand()
	cmd.Name = ""
	cmd.MarketCategory = ""

	_, task, err := f.svc.Submit(context.Background(), cmd)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "name, market_category")
	assert.Nil(t, task)
}

func TestSubmit_CompanyStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.companies.CreateErr = testutil.ErrStorage

	_, _, err := f.svc.Submit(context.Background(), validCommand())
	require.ErrorIs(t, err, testutil.ErrStorage)
	assert.Equal(t, 0, f.svc.Tasks.Running())
}

func TestExecute_DegradedStagesAreRecorded(t *testing.T) {
	f := newFixture(t)
	f.agents["comp"].Err = ai.ErrQuotaExceeded

	res, task, err := f.svc.Submit(context.Background(), validCommand())
	require.NoError(t, err)
	waitTask(t, task)
	require.NoError(t, task.Err())

	list, err := f.svc.Errors(context.Background(), res.AnalysisID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "competitor_research", list[0].Stage)
	assert.Equal(t, stageerrors.PhaseFallback, list[0].Phase)
	assert.Contains(t, list[0].DetailsJSON, "quota")
	assert.Equal(t, 1, f.counters.degraded)

	rep, err := f.svc.Report(context.Background(), res.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, pipeline.FallbackCompetitors(), rep.Competitors)

	view, err := f.svc.Progress(context.Background(), res.AnalysisID)
	require.NoError(t, err)
	assert.True(t, view.Steps[1].Degraded)
}

func TestExecute_StorageRetryWithMinimalPayload(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("é", 300)
	f.agents["pos"].Reply = `{"strategy":"` + long + `","market_gaps":["A"],"advantages":["B"]}`

	var retried domain.ResultFields
	f.analyses.SaveResultFunc = func(call int, fields domain.ResultFields) error {
		if call == 1 {
			assert.Len(t, []rune(fields.PositioningStrategy), 250)
			return testutil.ErrStorage
		}
		retried = fields
		return nil
	}

	res, task, err := f.svc.Submit(context.Background(), validCommand())
	require.NoError(t, err)
	waitTask(t, task)
	require.NoError(t, task.Err())

	assert.Equal(t, 2, f.analyses.SaveResultCalls())
	assert.Equal(t, "Analysis completed but data too large for storage", retried.Competitors)
	assert.Equal(t, "Analysis completed but data too large for storage", retried.CompetitiveAdvantages)
	assert.Len(t, []rune(retried.PositioningStrategy), 200)

	a, err := f.analyses.Get(context.Background(), res.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, a.Status)

	// placeholders are not JSON and come back as empty defaults
	rep, err := f.svc.Report(context.Background(), res.AnalysisID)
	require.NoError(t, err)
	assert.Empty(t, rep.Competitors)
	assert.NotNil(t, rep.Competitors)
	assert.Empty(t, rep.MarketGaps)
	assert.Len(t, []rune(rep.PositioningStrategy), 200)

	list, err := f.svc.Errors(context.Background(), res.AnalysisID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, stageerrors.PhaseStorage, list[0].Phase)
}

func TestExecute_StorageFailsTwice(t *testing.T) {
	f := newFixture(t)
	f.analyses.SaveResultFunc = func(int, domain.ResultFields) error { return testutil.ErrStorage }

	res, task, err := f.svc.Submit(context.Background(), validCommand())
	require.NoError(t, err)
	waitTask(t, task)

	require.Error(t, task.Err())
	assert.Equal(t, "analysis completed but failed to store results: storage unavailable", task.Err().Error())
	assert.Equal(t, TaskFailed, task.State())

	a, err := f.analyses.Get(context.Background(), res.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, a.Status)
	assert.Contains(t, a.Error, "failed to store results")

	snap := f.svc.Tracker.Get(res.AnalysisID)
	assert.Equal(t, domain.CurrentStepFailed, snap.CurrentStep)
	assert.Contains(t, snap.Error, "failed to store results")

	view, err := f.svc.Progress(context.Background(), res.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, view.Status)
	assert.Equal(t, domain.CurrentStepFailed, view.CurrentStep)

	c, err := f.companies.Get(context.Background(), res.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, c.AnalysisStatus)
	assert.Equal(t, 1, f.counters.failed)
}

func TestCancel_StopsRunBetweenStages(t *testing.T) {
	f := newFixture(t)
	started := make(chan struct{})
	f.agents["web"].RunFunc = func(ctx context.Context, task ai.Task) (ai.Response, error) {
		close(started)
		<-ctx.Done()
		return ai.Response{}, ctx.Err()
	}

	res, task, err := f.svc.Submit(context.Background(), validCommand())
	require.NoError(t, err)
	<-started
	require.NoError(t, f.svc.Cancel(res.AnalysisID))
	waitTask(t, task)

	assert.ErrorIs(t, task.Err(), context.Canceled)
	assert.Equal(t, TaskCanceled, task.State())
	assert.Equal(t, 0, f.agents["comp"].GetCallCount())

	a, err := f.analyses.Get(context.Background(), res.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, a.Status)

	view, err := f.svc.Progress(context.Background(), res.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, domain.CurrentStepFailed, view.CurrentStep)
}

func TestCancel_UnknownTask(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.Cancel("nope"), ErrTaskNotFound)
}

func TestProgressAndReport_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Progress(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.Report(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.Errors(context.Background(), "missing", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProgress_StoredButNotTracked(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.analyses.Create(context.Background(), &domain.Analysis{ID: "a1", Status: domain.StatusPending}))

	view, err := f.svc.Progress(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.CurrentStepUnknown, view.CurrentStep)
	assert.Equal(t, 0, view.Progress)
	assert.Equal(t, domain.StatusPending, view.Status)
	assert.NotNil(t, view.Steps)
	assert.Empty(t, view.Steps)
}

func TestReport_MalformedFieldsDecodeIndependently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.companies.Create(ctx, &domain.Company{ID: "c1", Name: "Acme", WebsiteURL: "https://acme.example.com"}))
	require.NoError(t, f.analyses.Create(ctx, &domain.Analysis{
		ID:                    "a1",
		CompanyID:             "c1",
		Status:                domain.StatusCompleted,
		Competitors:           `[{"name":"Globex"`,
		MarketTrends:          `[{"trend":"Automation","impact":"High","confidence":90}]`,
		MarketGaps:            `not json`,
		PositioningStrategy:   "Be first",
		CompetitiveAdvantages: "",
	}))

	rep, err := f.svc.Report(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Competitor{}, rep.Competitors)
	require.Len(t, rep.MarketTrends, 1)
	assert.Equal(t, "Automation", rep.MarketTrends[0].Trend)
	assert.Equal(t, []string{}, rep.MarketGaps)
	assert.Equal(t, []string{}, rep.CompetitiveAdvantages)
	assert.Equal(t, "Be first", rep.PositioningStrategy)
	assert.Equal(t, "https://acme.example.com", rep.Company.WebsiteURL)
}

func TestReport_NullFieldsBecomeEmptyDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.companies.Create(ctx, &domain.Company{ID: "c1", Name: "Acme"}))
	require.NoError(t, f.analyses.Create(ctx, &domain.Analysis{
		ID:                    "a1",
		CompanyID:             "c1",
		Status:                domain.StatusCompleted,
		Competitors:           "null",
		MarketTrends:          " null ",
		MarketGaps:            "null",
		CompetitiveAdvantages: "null",
	}))

	rep, err := f.svc.Report(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Competitor{}, rep.Competitors)
	assert.Equal(t, []domain.MarketTrend{}, rep.MarketTrends)
	assert.Equal(t, []string{}, rep.MarketGaps)
	assert.Equal(t, []string{}, rep.CompetitiveAdvantages)

	b, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"competitors":[]`)
	assert.NotContains(t, string(b), "null")
}

func TestCleanup(t *testing.T) {
	f := newFixture(t)
	res, task, err := f.svc.Submit(context.Background(), validCommand())
	require.NoError(t, err)
	waitTask(t, task)

	f.svc.Cleanup(res.AnalysisID)
	view, err := f.svc.Progress(context.Background(), res.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, domain.CurrentStepUnknown, view.CurrentStep)
	assert.Equal(t, domain.StatusCompleted, view.Status)

	_, ok := f.svc.Tasks.Get(res.AnalysisID)
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []domain.AnalysisID{"a1", "a2", "a3"} {
		require.NoError(t, f.analyses.Create(ctx, &domain.Analysis{ID: id, UserID: "alice", CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	require.NoError(t, f.analyses.Create(ctx, &domain.Analysis{ID: "b1", UserID: "bob", CreatedAt: base}))

	page, err := f.svc.List(ctx, "alice", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, domain.AnalysisID("a3"), page.Data[0].ID)

	page, err = f.svc.List(ctx, "alice", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)

	_, err = f.svc.List(ctx, "", 1, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResultFieldsFor_TruncatesPositioning(t *testing.T) {
	rep := pipeline.Assemble(nil, nil, domain.Positioning{Strategy: strings.Repeat("x", 260)})
	fields, err := ResultFieldsFor(rep)
	require.NoError(t, err)
	assert.Len(t, fields.PositioningStrategy, 250)
	assert.Equal(t, "[]", fields.Competitors)
	assert.Equal(t, "[]", fields.MarketGaps)

	short := pipeline.Assemble(nil, nil, domain.Positioning{Strategy: "short"})
	assert.Equal(t, "short", MinimalResultFields(short).PositioningStrategy)
}
