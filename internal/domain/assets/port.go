package assets

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned when asset generation is attempted without a user
var ErrUnauthenticated = errors.New("user not authenticated")

// Repository port for marketing asset records
type Repository interface {
	Create(ctx context.Context, a *MarketingAsset) error
	Get(ctx context.Context, id AssetID) (*MarketingAsset, error)
}

// ArtifactStore port for uploading generated content
type ArtifactStore interface {
	PutBytes(ctx context.Context, key, contentType string, data []byte) (string, error)
}
