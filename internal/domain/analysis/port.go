package analysis

import "context"

// CompanyRepository port for company records
type CompanyRepository interface {
	Create(ctx context.Context, c *Company) error
	Get(ctx context.Context, id CompanyID) (*Company, error)
	UpdateStatus(ctx context.Context, id CompanyID, status Status) error
}

// Repository port for analysis records
type Repository interface {
	Create(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	UpdateStatus(ctx context.Context, id AnalysisID, status Status, message string) error
	SaveResult(ctx context.Context, id AnalysisID, status Status, fields ResultFields) error
	ListByUser(ctx context.Context, userID string, page, pageSize int) (PaginatedResult, error)
}

// Notifier delivers progress events to push-channel subscribers
type Notifier interface {
	Notify(ctx context.Context, id AnalysisID, ev Event) error
}
