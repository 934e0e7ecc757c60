package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/bryanwahyu/competeiq/internal/application/progress"
	"github.com/bryanwahyu/competeiq/internal/domain/ai"
	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
	"github.com/bryanwahyu/competeiq/internal/logger"
)

var errNoAgent = errors.New("agent not configured")

// Agents serving the four stages
type Agents struct {
	WebScraping        ai.Agent
	CompetitorResearch ai.Agent
	TrendPrediction    ai.Agent
	MarketPositioning  ai.Agent
}

// DegradedFunc is called after a stage fell back to its fixed payload
type DegradedFunc func(ctx context.Context, id analysis.AnalysisID, stage analysis.StageName, cause error)

// Runner executes the four stages of one analysis in order
type Runner struct {
	Agents     Agents
	Tracker    *progress.Tracker
	OnDegraded DegradedFunc
}

// Input of one run
type Input struct {
	RunID    analysis.AnalysisID
	Profile  analysis.CompanyProfile
	UserName string
	Notify   progress.NotifyFunc
}

// Run drives web_scraping → competitor_research → trend_prediction →
// market_positioning. Stage failures are replaced by fallbacks and never stop
// the run; an error is returned only when the run itself cannot continue
// (canceled context, lost tracker entry, panic).
func (r *Runner) Run(ctx context.Context, in Input) (rep analysis.Report, err error) {
	r.Tracker.Start(in.RunID, analysis.DefaultStages(), in.Notify)
	log := logger.WithAnalysis(string(in.RunID))

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pipeline panic: %v", p)
			rep = analysis.Report{}
		}
		if err != nil {
			log.WithError(err).Error("analysis run failed")
			_ = r.Tracker.Fail(in.RunID, err)
		}
	}()

	overview, err := runStage(ctx, r, in.RunID, analysis.StageWebScraping, r.Agents.WebScraping,
		overviewTask(in.Profile), DecodeOverview,
		func() analysis.CompanyOverview { return FallbackOverview(in.Profile) })
	if err != nil {
		return analysis.Report{}, err
	}

	competitors, err := runStage(ctx, r, in.RunID, analysis.StageCompetitorResearch, r.Agents.CompetitorResearch,
		competitorTask(in.Profile, overview), DecodeCompetitors, FallbackCompetitors)
	if err != nil {
		return analysis.Report{}, err
	}

	trends, err := runStage(ctx, r, in.RunID, analysis.StageTrendPrediction, r.Agents.TrendPrediction,
		trendTask(in.Profile, competitors), DecodeTrends, FallbackTrends)
	if err != nil {
		return analysis.Report{}, err
	}

	positioning, err := runStage(ctx, r, in.RunID, analysis.StageMarketPositioning, r.Agents.MarketPositioning,
		positioningTask(in.Profile, overview, competitors, trends, in.UserName), DecodePositioning,
		func() analysis.Positioning { return FallbackPositioning(in.Profile) })
	if err != nil {
		return analysis.Report{}, err
	}

	if err := r.Tracker.Complete(in.RunID); err != nil {
		return analysis.Report{}, err
	}
	log.Info("analysis run completed")
	return Assemble(competitors, trends, positioning), nil
}

func runStage[T any](
	ctx context.Context,
	r *Runner,
	id analysis.AnalysisID,
	stage analysis.StageName,
	agent ai.Agent,
	task ai.Task,
	decode func([]byte) (T, error),
	fallback func() T,
) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("before %s: %w", stage, err)
	}
	if err := r.Tracker.Update(id, stage, 0, analysis.StageInProgress); err != nil {
		return zero, err
	}

	resp, callErr := callAgent(ctx, agent, task)
	out := Resolve(resp, callErr, decode, fallback)

	if out.Degraded() {
		logger.WithAnalysis(string(id)).
			WithField("stage", stage).
			WithError(out.Cause).
			Warn("stage degraded, using fallback")
		if err := r.Tracker.MarkDegraded(id, stage); err != nil {
			return zero, err
		}
		if r.OnDegraded != nil {
			r.OnDegraded(ctx, id, stage, out.Cause)
		}
	}
	if err := r.Tracker.Update(id, stage, 100, analysis.StageCompleted); err != nil {
		return zero, err
	}
	return out.Value, nil
}

// callAgent contains agent panics so they count as a stage failure
func callAgent(ctx context.Context, agent ai.Agent, task ai.Task) (resp ai.Response, err error) {
	if agent == nil {
		return ai.Response{}, errNoAgent
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("agent %s panic: %v", agent.Name(), p)
		}
	}()
	return agent.Run(ctx, task)
}
