package repository

import (
	"context"

	"userhub/internal/domain"
)

// ReportRepository stores generated reports and their items.
type ReportRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, report *domain.Report) (int64, error)
	AddItems(ctx context.Context, reportID int64, items []domain.ReportItem) error
	Get(ctx context.Context, id int64) (*domain.Report, error)
	List(ctx context.Context, reportType int, skip, limit int) ([]domain.Report, error)
	ListItems(ctx context.Context, reportID int64) ([]domain.ReportItem, error)
}

// SequenceRepository answers ID availability probes for the named tables.
type SequenceRepository interface {
	IDExists(ctx context.Context, table string, id int64) (bool, error)
	MaxID(ctx context.Context, table string) (int64, error)
}
