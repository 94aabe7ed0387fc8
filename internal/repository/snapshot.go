package repository

import (
	"context"
	"time"

	"userhub/internal/domain"
)

// SnapshotFileRepository stores uploaded snapshot files and their payloads.
type SnapshotFileRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, file *domain.SnapshotFile) (int64, error)
	Get(ctx context.Context, id int64) (*domain.SnapshotFile, error)
	GetByName(ctx context.Context, name string) (*domain.SnapshotFile, error)
	List(ctx context.Context, skip, limit int) ([]domain.SnapshotFile, error)
	UpdateStatus(ctx context.Context, id int64, status domain.SnapshotStatus, processedAt *time.Time) error
	SetArchiveLocation(ctx context.Context, id int64, location string) error
}
