package assets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/competeiq/internal/application"
	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
	domain "github.com/bryanwahyu/competeiq/internal/domain/assets"
	"github.com/bryanwahyu/competeiq/internal/logger"
)

const (
	DefaultDuration = 30
	MinDuration     = 15
	MaxDuration     = 60

	mockAudioURL = "https://via.placeholder.com/audio/mock-audio-file.mp3"
	imageSource  = "mock"
)

// Service generates marketing assets without calling an external model
type Service struct {
	Analyses analysis.Repository
	Repo     domain.Repository
	// Artifacts is optional; when set scripts are uploaded
	Artifacts domain.ArtifactStore
	Clock     application.Clock
}

type ScriptCommand struct {
	UserID     string `json:"-"`
	AnalysisID string `json:"analysis_id"`
	Style      string `json:"style"`
	Duration   int    `json:"duration"`
}

type ScriptResult struct {
	Script  string         `json:"script"`
	AssetID domain.AssetID `json:"asset_id"`
}

// GenerateScript renders a script for an existing analysis and stores it as an asset
func (s *Service) GenerateScript(ctx context.Context, cmd ScriptCommand) (ScriptResult, error) {
	if cmd.UserID == "" {
		return ScriptResult{}, domain.ErrUnauthenticated
	}
	duration := cmd.Duration
	if duration == 0 {
		duration = DefaultDuration
	}
	if duration < MinDuration || duration > MaxDuration {
		return ScriptResult{}, fmt.Errorf("%w: duration must be between %d and %d seconds", analysis.ErrInvalidInput, MinDuration, MaxDuration)
	}
	if strings.TrimSpace(cmd.AnalysisID) == "" {
		return ScriptResult{}, fmt.Errorf("%w: analysis_id required", analysis.ErrInvalidInput)
	}

	a, err := s.Analyses.Get(ctx, analysis.AnalysisID(cmd.AnalysisID))
	if err != nil {
		return ScriptResult{}, err
	}

	style := NormalizeStyle(cmd.Style)
	script := Script(style, duration)

	now := s.now()
	asset := &domain.MarketingAsset{
		ID:            domain.AssetID(uuid.NewString()),
		CompanyID:     string(a.CompanyID),
		AnalysisID:    cmd.AnalysisID,
		UserID:        cmd.UserID,
		ScriptContent: script,
		Duration:      duration,
		Style:         style,
		Status:        domain.StatusScriptGenerated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if s.Artifacts != nil {
		key := fmt.Sprintf("assets/%s/script.txt", asset.ID)
		url, err := s.Artifacts.PutBytes(ctx, key, "text/plain; charset=utf-8", []byte(script))
		if err != nil {
			logger.WithAnalysis(cmd.AnalysisID).WithField("asset_id", asset.ID).WithError(err).Warn("script upload failed")
		} else {
			asset.ScriptURL = url
		}
	}

	if err := s.Repo.Create(ctx, asset); err != nil {
		return ScriptResult{}, fmt.Errorf("create asset: %w", err)
	}
	return ScriptResult{Script: script, AssetID: asset.ID}, nil
}

type ImagesCommand struct {
	UserID      string `json:"-"`
	Script      string `json:"script"`
	CompanyName string `json:"company_name"`
	Style       string `json:"style"`
}

// GenerateImages returns three placeholder images for the company
func (s *Service) GenerateImages(ctx context.Context, cmd ImagesCommand) ([]domain.Image, error) {
	if cmd.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if strings.TrimSpace(cmd.CompanyName) == "" {
		return nil, fmt.Errorf("%w: company_name required", analysis.ErrInvalidInput)
	}
	return MockImages(cmd.CompanyName), nil
}

func MockImages(company string) []domain.Image {
	return []domain.Image{
		{
			URL:       "https://via.placeholder.com/800x600/4F46E5/FFFFFF?text=Marketing+Image+1",
			Prompt:    fmt.Sprintf("Professional marketing image for %s", company),
			Timestamp: 0,
			Source:    imageSource,
		},
		{
			URL:       "https://via.placeholder.com/800x600/7C3AED/FFFFFF?text=Marketing+Image+2",
			Prompt:    fmt.Sprintf("Modern business concept for %s", company),
			Timestamp: 1,
			Source:    imageSource,
		},
		{
			URL:       "https://via.placeholder.com/800x600/059669/FFFFFF?text=Marketing+Image+3",
			Prompt:    fmt.Sprintf("Success and growth visualization for %s", company),
			Timestamp: 2,
			Source:    imageSource,
		},
	}
}

type AudioCommand struct {
	UserID string `json:"-"`
	Script string `json:"script"`
	Voice  string `json:"voice"`
}

// GenerateAudio returns the mock audio file
func (s *Service) GenerateAudio(ctx context.Context, cmd AudioCommand) (string, error) {
	if cmd.UserID == "" {
		return "", domain.ErrUnauthenticated
	}
	return mockAudioURL, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}
