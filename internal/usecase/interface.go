package usecase

import (
	"context"

	"retail-reports/internal/domain"
)

// DatasetRepository supplies raw tabular batches per logical dataset name,
// already filtered to the requested scope. The usecase layer depends on this
// interface, not on a concrete implementation.
//
//go:generate mockgen -destination=mocks/mock_interface.go -source=interface.go
type DatasetRepository interface {
	GetDataset(ctx context.Context, name string, scope domain.Scope) (*domain.Frame, error)
}

// ReportWriter serializes a finished report batch and returns the paths of
// the artifacts it produced.
type ReportWriter interface {
	Write(ctx context.Context, report domain.Report, frame *domain.Frame) ([]string, error)
}

// ArtifactDistributor copies finished artifacts to their destinations.
// Distribution is best effort; the run does not abort on its errors.
type ArtifactDistributor interface {
	Distribute(ctx context.Context, paths []string) (int, error)
}
