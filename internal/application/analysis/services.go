package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/competeiq/internal/application"
	"github.com/bryanwahyu/competeiq/internal/application/pipeline"
	"github.com/bryanwahyu/competeiq/internal/application/progress"
	domain "github.com/bryanwahyu/competeiq/internal/domain/analysis"
	"github.com/bryanwahyu/competeiq/internal/domain/stageerrors"
	"github.com/bryanwahyu/competeiq/internal/logger"
)

const (
	// EstimatedDuration is reported to clients on submit, in seconds
	EstimatedDuration = 120

	positioningLimit        = 250
	minimalPositioningLimit = 200
	storageOverflowNote     = "Analysis completed but data too large for storage"
)

// Recorder receives run counters
type Recorder interface {
	RunStarted()
	RunFinished(failed bool)
	StageDegraded()
}

// Service implements the analysis use-cases
// Service is safe for concurrent use
type Service struct {
	Companies   domain.CompanyRepository
	Repo        domain.Repository
	StageErrors stageerrors.Repository
	Runner      *pipeline.Runner
	Tracker     *progress.Tracker
	Notifier    domain.Notifier
	Tasks       *TaskRegistry
	Recorder    Recorder
	Clock       application.Clock
}

//
// ==== USE CASES ====
//

// SubmitCommand is the analyze-company request
type SubmitCommand struct {
	Name               string `json:"name"`
	WebsiteURL         string `json:"website_url"`
	ProductDescription string `json:"product_description"`
	MarketCategory     string `json:"market_category"`
	UserName           string `json:"user_name,omitempty"`
}

func (c SubmitCommand) Validate() error {
	missing := make([]string, 0, 4)
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.WebsiteURL) == "" {
		missing = append(missing, "website_url")
	}
	if strings.TrimSpace(c.ProductDescription) == "" {
		missing = append(missing, "product_description")
	}
	if strings.TrimSpace(c.MarketCategory) == "" {
		missing = append(missing, "market_category")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

type SubmitResult struct {
	AnalysisID        domain.AnalysisID `json:"analysis_id"`
	CompanyID         domain.CompanyID  `json:"company_id"`
	Status            string            `json:"status"`
	EstimatedDuration int               `json:"estimated_duration"`
}

// Submit stores the company and analysis records and starts the run in the
// background. It returns as soon as the run is scheduled.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (SubmitResult, *Task, error) {
	if err := cmd.Validate(); err != nil {
		return SubmitResult{}, nil, err
	}
	userID := strings.TrimSpace(cmd.UserName)
	if userID == "" {
		userID = domain.DefaultUserID
	}

	now := s.now()
	analysisID := domain.AnalysisID(uuid.NewString())
	company := &domain.Company{
		ID:                 domain.CompanyID(uuid.NewString()),
		Name:               cmd.Name,
		WebsiteURL:         cmd.WebsiteURL,
		ProductDescription: cmd.ProductDescription,
		MarketCategory:     cmd.MarketCategory,
		AnalysisStatus:     domain.StatusPending,
		UserID:             userID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.Companies.Create(ctx, company); err != nil {
		return SubmitResult{}, nil, fmt.Errorf("create company: %w", err)
	}

	a := &domain.Analysis{
		ID:        analysisID,
		CompanyID: company.ID,
		UserID:    userID,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return SubmitResult{}, nil, fmt.Errorf("create analysis: %w", err)
	}

	logger.WithAnalysis(string(analysisID)).
		WithField("company", company.Name).
		WithField("user_id", userID).
		Info("analysis submitted")

	run := ExecuteCommand{
		AnalysisID: analysisID,
		CompanyID:  company.ID,
		Profile:    company.Profile(),
		UserName:   strings.TrimSpace(cmd.UserName),
	}
	task := s.Tasks.Go(analysisID, func(ctx context.Context) error {
		return s.Execute(ctx, run)
	})

	return SubmitResult{
		AnalysisID:        analysisID,
		CompanyID:         company.ID,
		Status:            "started",
		EstimatedDuration: EstimatedDuration,
	}, task, nil
}

// ExecuteCommand describes one background run
type ExecuteCommand struct {
	AnalysisID domain.AnalysisID
	CompanyID  domain.CompanyID
	Profile    domain.CompanyProfile
	UserName   string
}

// Execute runs the pipeline and stores its report. Any failure marks the
// analysis failed (best effort) and is returned.
func (s *Service) Execute(ctx context.Context, cmd ExecuteCommand) error {
	log := logger.WithAnalysis(string(cmd.AnalysisID))
	s.recordStarted()

	if err := s.Repo.UpdateStatus(ctx, cmd.AnalysisID, domain.StatusInProgress, ""); err != nil {
		return s.fail(ctx, cmd, fmt.Errorf("mark in progress: %w", err))
	}
	s.setCompanyStatus(ctx, cmd.CompanyID, domain.StatusInProgress)

	rep, err := s.Runner.Run(ctx, pipeline.Input{
		RunID:    cmd.AnalysisID,
		Profile:  cmd.Profile,
		UserName: cmd.UserName,
		Notify:   s.notifyFunc(ctx, cmd.AnalysisID),
	})
	if err != nil {
		return s.fail(ctx, cmd, err)
	}

	if err := s.store(ctx, cmd.AnalysisID, rep); err != nil {
		return s.fail(ctx, cmd, err)
	}
	s.setCompanyStatus(ctx, cmd.CompanyID, domain.StatusCompleted)
	s.recordFinished(false)
	log.Info("analysis stored")
	return nil
}

// store writes the report, retrying once with a minimal payload
func (s *Service) store(ctx context.Context, id domain.AnalysisID, rep domain.Report) error {
	log := logger.WithAnalysis(string(id))

	fields, err := ResultFieldsFor(rep)
	if err == nil {
		log.WithField("competitors_len", len(fields.Competitors)).
			WithField("trends_len", len(fields.MarketTrends)).
			WithField("gaps_len", len(fields.MarketGaps)).
			WithField("advantages_len", len(fields.CompetitiveAdvantages)).
			Debug("storing analysis results")
		err = s.Repo.SaveResult(ctx, id, domain.StatusCompleted, fields)
	}
	if err == nil {
		return nil
	}

	log.WithError(err).Error("failed to store analysis results, retrying with minimal payload")
	s.saveStageError(ctx, id, "", stageerrors.PhaseStorage, err)

	if retryErr := s.Repo.SaveResult(ctx, id, domain.StatusCompleted, MinimalResultFields(rep)); retryErr != nil {
		log.WithError(retryErr).Error("failed to store even minimal analysis results")
		return fmt.Errorf("analysis completed but failed to store results: %w", err)
	}
	log.Warn("stored minimal analysis results")
	return nil
}

// ResultFieldsFor encodes the report for storage
func ResultFieldsFor(rep domain.Report) (domain.ResultFields, error) {
	competitors, err := json.Marshal(rep.Competitors)
	if err != nil {
		return domain.ResultFields{}, fmt.Errorf("encode competitors: %w", err)
	}
	trends, err := json.Marshal(rep.MarketTrends)
	if err != nil {
		return domain.ResultFields{}, fmt.Errorf("encode market trends: %w", err)
	}
	gaps, err := json.Marshal(rep.MarketGaps)
	if err != nil {
		return domain.ResultFields{}, fmt.Errorf("encode market gaps: %w", err)
	}
	advantages, err := json.Marshal(rep.CompetitiveAdvantages)
	if err != nil {
		return domain.ResultFields{}, fmt.Errorf("encode competitive advantages: %w", err)
	}
	return domain.ResultFields{
		Competitors:           string(competitors),
		MarketTrends:          string(trends),
		MarketGaps:            string(gaps),
		PositioningStrategy:   truncateRunes(rep.PositioningStrategy, positioningLimit),
		CompetitiveAdvantages: string(advantages),
	}, nil
}

// MinimalResultFields is the payload of the storage retry
func MinimalResultFields(rep domain.Report) domain.ResultFields {
	return domain.ResultFields{
		Competitors:           storageOverflowNote,
		MarketTrends:          storageOverflowNote,
		MarketGaps:            storageOverflowNote,
		PositioningStrategy:   truncateRunes(rep.PositioningStrategy, minimalPositioningLimit),
		CompetitiveAdvantages: storageOverflowNote,
	}
}

func (s *Service) fail(ctx context.Context, cmd ExecuteCommand, cause error) error {
	// the run context may already be canceled
	ctx = context.WithoutCancel(ctx)
	log := logger.WithAnalysis(string(cmd.AnalysisID))
	log.WithError(cause).Error("analysis failed")

	if err := s.Repo.UpdateStatus(ctx, cmd.AnalysisID, domain.StatusFailed, cause.Error()); err != nil {
		log.WithError(err).Error("failed to update analysis status to failed")
	}
	s.setCompanyStatus(ctx, cmd.CompanyID, domain.StatusFailed)
	if s.Tracker != nil {
		// the run may not have been tracked yet
		_ = s.Tracker.Fail(cmd.AnalysisID, cause)
	}
	s.saveStageError(ctx, cmd.AnalysisID, "", stageerrors.PhaseRun, cause)
	s.recordFinished(true)
	return cause
}

func (s *Service) setCompanyStatus(ctx context.Context, id domain.CompanyID, status domain.Status) {
	if s.Companies == nil {
		return
	}
	if err := s.Companies.UpdateStatus(ctx, id, status); err != nil {
		logger.Log.WithField("company_id", id).WithError(err).Warn("failed to update company status")
	}
}

func (s *Service) notifyFunc(ctx context.Context, id domain.AnalysisID) progress.NotifyFunc {
	if s.Notifier == nil {
		return nil
	}
	return func(stage domain.StageName, pct int, status domain.StageStatus, message string) {
		ev := domain.Event{Stage: stage, Progress: pct, Status: status, Message: message}
		if err := s.Notifier.Notify(ctx, id, ev); err != nil {
			logger.WithAnalysis(string(id)).WithField("stage", stage).WithError(err).Warn("progress push failed")
		}
	}
}

// RecordDegraded stores a fallback stage error; wired as the runner's degraded hook
func (s *Service) RecordDegraded(ctx context.Context, id domain.AnalysisID, stage domain.StageName, cause error) {
	if s.Recorder != nil {
		s.Recorder.StageDegraded()
	}
	s.saveStageError(ctx, id, string(stage), stageerrors.PhaseFallback, cause)
}

func (s *Service) saveStageError(ctx context.Context, id domain.AnalysisID, stage, phase string, cause error) {
	if s.StageErrors == nil || cause == nil {
		return
	}
	details, _ := json.Marshal(map[string]string{"error": cause.Error()})
	e := &stageerrors.StageError{
		AnalysisID:  string(id),
		Stage:       stage,
		Phase:       phase,
		Message:     cause.Error(),
		DetailsJSON: string(details),
		CreatedAt:   s.now(),
	}
	if err := s.StageErrors.Save(context.WithoutCancel(ctx), e); err != nil {
		logger.WithAnalysis(string(id)).WithError(err).Warn("failed to save stage error")
	}
}

// ProgressView is the progress endpoint payload
type ProgressView struct {
	AnalysisID  domain.AnalysisID `json:"analysis_id"`
	CurrentStep string            `json:"current_step"`
	Progress    int               `json:"progress"`
	Status      domain.Status     `json:"status"`
	Steps       []domain.Step     `json:"steps"`
	Error       string            `json:"error,omitempty"`
}

// Progress merges the stored status with the live tracker snapshot
func (s *Service) Progress(ctx context.Context, id domain.AnalysisID) (ProgressView, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return ProgressView{}, err
	}
	snap := s.Tracker.Get(id)
	status := a.Status
	if status == "" {
		status = domain.StatusPending
	}
	return ProgressView{
		AnalysisID:  id,
		CurrentStep: snap.CurrentStep,
		Progress:    snap.Progress,
		Status:      status,
		Steps:       snap.Steps,
		Error:       snap.Error,
	}, nil
}

// CompanyRef is the company part of the report payload
type CompanyRef struct {
	Name       string `json:"name"`
	WebsiteURL string `json:"website_url"`
}

// ReportView is the analysis endpoint payload
type ReportView struct {
	AnalysisID domain.AnalysisID `json:"analysis_id"`
	Status     domain.Status     `json:"status"`
	Company    CompanyRef        `json:"company"`
	domain.Report
}

// Report decodes the stored result fields one by one; a malformed field
// becomes its empty default and is logged.
func (s *Service) Report(ctx context.Context, id domain.AnalysisID) (ReportView, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return ReportView{}, err
	}
	view := ReportView{AnalysisID: id, Status: a.Status}

	if c, err := s.Companies.Get(ctx, a.CompanyID); err == nil {
		view.Company = CompanyRef{Name: c.Name, WebsiteURL: c.WebsiteURL}
	} else {
		logger.WithAnalysis(string(id)).WithField("company_id", a.CompanyID).WithError(err).Warn("company record missing")
	}

	view.Competitors = safeDecode(id, "competitors", a.Competitors, []domain.Competitor{})
	view.MarketTrends = safeDecode(id, "market_trends", a.MarketTrends, []domain.MarketTrend{})
	view.MarketGaps = safeDecode(id, "market_gaps", a.MarketGaps, []string{})
	view.PositioningStrategy = a.PositioningStrategy
	view.CompetitiveAdvantages = safeDecode(id, "competitive_advantages", a.CompetitiveAdvantages, []string{})
	return view, nil
}

func safeDecode[T any](id domain.AnalysisID, field, raw string, def T) T {
	if trimmed := strings.TrimSpace(raw); trimmed == "" || trimmed == "null" {
		return def
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.WithAnalysis(string(id)).
			WithField("field", field).
			WithField("raw", truncateRunes(raw, 120)).
			WithError(err).
			Warn("invalid JSON in stored analysis")
		return def
	}
	return out
}

// List returns a page of the user's analyses, newest first
func (s *Service) List(ctx context.Context, userID string, page, pageSize int) (domain.PaginatedResult, error) {
	if userID == "" {
		return domain.PaginatedResult{}, fmt.Errorf("%w: user id required", domain.ErrInvalidInput)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return s.Repo.ListByUser(ctx, userID, page, pageSize)
}

// Cancel stops the background run of id
func (s *Service) Cancel(id domain.AnalysisID) error {
	return s.Tasks.Cancel(id)
}

// Cleanup drops the in-memory progress of id and its finished task handle
func (s *Service) Cleanup(id domain.AnalysisID) {
	s.Tracker.Cleanup(id)
	s.Tasks.Forget(id)
}

// Errors lists stage errors of an existing analysis
func (s *Service) Errors(ctx context.Context, id domain.AnalysisID, limit int) ([]*stageerrors.StageError, error) {
	if _, err := s.Repo.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.StageErrors == nil {
		return []*stageerrors.StageError{}, nil
	}
	list, err := s.StageErrors.ListByAnalysis(ctx, string(id), limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*stageerrors.StageError{}
	}
	return list, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func (s *Service) recordStarted() {
	if s.Recorder != nil {
		s.Recorder.RunStarted()
	}
}

func (s *Service) recordFinished(failed bool) {
	if s.Recorder != nil {
		s.Recorder.RunFinished(failed)
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
