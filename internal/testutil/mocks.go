package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bryanwahyu/competeiq/internal/domain/ai"
	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
	"github.com/bryanwahyu/competeiq/internal/domain/assets"
	"github.com/bryanwahyu/competeiq/internal/domain/search"
	"github.com/bryanwahyu/competeiq/internal/domain/stageerrors"
)

// MockAgent is a mock implementation of ai.Agent
type MockAgent struct {
	mu        sync.Mutex
	AgentName string
	Reply     string
	Err       error
	CallCount int
	LastTask  ai.Task
	// RunFunc allows custom behavior for tests
	RunFunc func(ctx context.Context, task ai.Task) (ai.Response, error)
}

// NewMockAgent returns an agent that answers reply as raw model output
func NewMockAgent(name, reply string) *MockAgent {
	return &MockAgent{AgentName: name, Reply: reply}
}

// Name implements ai.Agent
func (m *MockAgent) Name() string { return m.AgentName }

// Run implements ai.Agent
func (m *MockAgent) Run(ctx context.Context, task ai.Task) (ai.Response, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastTask = task
	fn := m.RunFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, task)
	}
	if m.Err != nil {
		return ai.Response{}, m.Err
	}
	return ai.NewResponse(m.Reply), nil
}

// GetCallCount returns the number of Run calls made
func (m *MockAgent) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// GetLastTask returns the most recent task
func (m *MockAgent) GetLastTask() ai.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastTask
}

// MemoryCompanies is an in-memory analysis.CompanyRepository
type MemoryCompanies struct {
	mu    sync.RWMutex
	items map[analysis.CompanyID]analysis.Company
	// CreateErr is returned by Create when set
	CreateErr error
}

func NewMemoryCompanies() *MemoryCompanies {
	return &MemoryCompanies{items: make(map[analysis.CompanyID]analysis.Company)}
}

func (m *MemoryCompanies) Create(ctx context.Context, c *analysis.Company) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[c.ID] = *c
	return nil
}

func (m *MemoryCompanies) Get(ctx context.Context, id analysis.CompanyID) (*analysis.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.items[id]
	if !ok {
		return nil, analysis.ErrNotFound
	}
	return &c, nil
}

func (m *MemoryCompanies) UpdateStatus(ctx context.Context, id analysis.CompanyID, status analysis.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return analysis.ErrNotFound
	}
	c.AnalysisStatus = status
	m.items[id] = c
	return nil
}

// MemoryAnalyses is an in-memory analysis.Repository
type MemoryAnalyses struct {
	mu    sync.RWMutex
	items map[analysis.AnalysisID]analysis.Analysis
	// SaveResultFunc intercepts SaveResult calls; returning an error fails the write
	SaveResultFunc  func(call int, fields analysis.ResultFields) error
	saveResultCalls int
	UpdateStatusErr error
}

func NewMemoryAnalyses() *MemoryAnalyses {
	return &MemoryAnalyses{items: make(map[analysis.AnalysisID]analysis.Analysis)}
}

func (m *MemoryAnalyses) Create(ctx context.Context, a *analysis.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[a.ID] = *a
	return nil
}

func (m *MemoryAnalyses) Get(ctx context.Context, id analysis.AnalysisID) (*analysis.Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.items[id]
	if !ok {
		return nil, analysis.ErrNotFound
	}
	return &a, nil
}

func (m *MemoryAnalyses) UpdateStatus(ctx context.Context, id analysis.AnalysisID, status analysis.Status, message string) error {
	if m.UpdateStatusErr != nil {
		return m.UpdateStatusErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return analysis.ErrNotFound
	}
	a.Status = status
	a.Error = message
	m.items[id] = a
	return nil
}

func (m *MemoryAnalyses) SaveResult(ctx context.Context, id analysis.AnalysisID, status analysis.Status, f analysis.ResultFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveResultCalls++
	if m.SaveResultFunc != nil {
		if err := m.SaveResultFunc(m.saveResultCalls, f); err != nil {
			return err
		}
	}
	a, ok := m.items[id]
	if !ok {
		return analysis.ErrNotFound
	}
	a.Status = status
	a.Competitors = f.Competitors
	a.MarketTrends = f.MarketTrends
	a.MarketGaps = f.MarketGaps
	a.PositioningStrategy = f.PositioningStrategy
	a.CompetitiveAdvantages = f.CompetitiveAdvantages
	m.items[id] = a
	return nil
}

func (m *MemoryAnalyses) ListByUser(ctx context.Context, userID string, page, pageSize int) (analysis.PaginatedResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*analysis.Analysis
	for _, a := range m.items {
		if a.UserID == userID {
			a := a
			all = append(all, &a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return analysis.PaginatedResult{
		Data:       all[start:end],
		Page:       page,
		PageSize:   pageSize,
		Total:      int64(total),
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// SaveResultCalls returns the number of SaveResult calls made
func (m *MemoryAnalyses) SaveResultCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveResultCalls
}

// MemoryStageErrors is an in-memory stageerrors.Repository
type MemoryStageErrors struct {
	mu    sync.Mutex
	items []*stageerrors.StageError
}

func NewMemoryStageErrors() *MemoryStageErrors { return &MemoryStageErrors{} }

func (m *MemoryStageErrors) Save(ctx context.Context, e *stageerrors.StageError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.items) + 1)
	cp := *e
	m.items = append(m.items, &cp)
	return nil
}

func (m *MemoryStageErrors) ListByAnalysis(ctx context.Context, analysisID string, limit int) ([]*stageerrors.StageError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*stageerrors.StageError
	for _, e := range m.items {
		if e.AnalysisID == analysisID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryAssets is an in-memory assets.Repository
type MemoryAssets struct {
	mu    sync.RWMutex
	items map[assets.AssetID]assets.MarketingAsset
}

func NewMemoryAssets() *MemoryAssets {
	return &MemoryAssets{items: make(map[assets.AssetID]assets.MarketingAsset)}
}

func (m *MemoryAssets) Create(ctx context.Context, a *assets.MarketingAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[a.ID] = *a
	return nil
}

func (m *MemoryAssets) Get(ctx context.Context, id assets.AssetID) (*assets.MarketingAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.items[id]
	if !ok {
		return nil, analysis.ErrNotFound
	}
	return &a, nil
}

// MockArtifactStore records uploads in memory
type MockArtifactStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Err     error
}

func NewMockArtifactStore() *MockArtifactStore {
	return &MockArtifactStore{Objects: make(map[string][]byte)}
}

func (m *MockArtifactStore) PutBytes(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://bucket/%s", key), nil
}

// MockNotifier collects pushed events per analysis
type MockNotifier struct {
	mu     sync.Mutex
	Events map[analysis.AnalysisID][]analysis.Event
	Err    error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{Events: make(map[analysis.AnalysisID][]analysis.Event)}
}

func (m *MockNotifier) Notify(ctx context.Context, id analysis.AnalysisID, ev analysis.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events[id] = append(m.Events[id], ev)
	return m.Err
}

// EventsFor returns a copy of the events pushed for id
func (m *MockNotifier) EventsFor(id analysis.AnalysisID) []analysis.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]analysis.Event(nil), m.Events[id]...)
}

// ErrStorage is a canned storage failure
var ErrStorage = errors.New("storage unavailable")

// MockCompleter is a mock implementation of ai.Completer
type MockCompleter struct {
	mu         sync.Mutex
	Reply      string
	Err        error
	CallCount  int
	LastSystem string
	LastUser   string
}

// Complete implements ai.Completer
func (m *MockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount++
	m.LastSystem = system
	m.LastUser = user
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

// GetLastUser returns the most recent user message
func (m *MockCompleter) GetLastUser() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastUser
}

// MockSearcher is a mock implementation of search.Searcher
type MockSearcher struct {
	mu       sync.Mutex
	Response *search.Response
	Err      error
	Requests []search.Request
}

// Search implements search.Searcher
func (m *MockSearcher) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, *req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Response == nil {
		return &search.Response{}, nil
	}
	return m.Response, nil
}
