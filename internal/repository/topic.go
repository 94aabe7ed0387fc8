package repository

import (
	"context"
	"time"

	"userhub/internal/domain"
)

// TopicRepository exposes persistence operations for Topic aggregates,
// including the canned queries backing report generation.
type TopicRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, topic *domain.Topic) (int64, error)
	Update(ctx context.Context, topic *domain.Topic) error
	Get(ctx context.Context, id int64) (*domain.Topic, error)
	GetByName(ctx context.Context, name string) (*domain.Topic, error)
	List(ctx context.Context, environment string, skip, limit int) ([]domain.Topic, error)
	AddHistory(ctx context.Context, entry *domain.TopicHistory) error
	ListHistory(ctx context.Context, topicID int64) ([]domain.TopicHistory, error)

	ListWithoutProducers(ctx context.Context) ([]domain.Topic, error)
	ListWithoutConsumers(ctx context.Context) ([]domain.Topic, error)
	ListSilentSince(ctx context.Context, cutoff time.Time) ([]domain.Topic, error)
	ListWithMultipleProducers(ctx context.Context) ([]domain.Topic, error)
	ListWithoutInterface(ctx context.Context) ([]domain.Topic, error)
	ListModifiedSince(ctx context.Context, cutoff time.Time) ([]domain.Topic, error)
	ListOutsideEnvironments(ctx context.Context, allowed ...string) ([]domain.Topic, error)
}
