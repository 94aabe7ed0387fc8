package service

import (
	"context"
	"errors"
	"fmt"

	"userhub/internal/domain"
	"userhub/internal/repository"
)

// TopicService exposes read access to the topic catalog.
type TopicService interface {
	Get(ctx context.Context, id int64) (*domain.Topic, error)
	List(ctx context.Context, environment string, skip, limit int) ([]domain.Topic, error)
	History(ctx context.Context, topicID int64) ([]domain.TopicHistory, error)
}

type topicService struct {
	topics repository.TopicRepository
}

func NewTopicService(topics repository.TopicRepository) TopicService {
	return &topicService{topics: topics}
}

func (s *topicService) Get(ctx context.Context, id int64) (*domain.Topic, error) {
	topic, err := s.topics.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("topic %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return topic, nil
}

func (s *topicService) List(ctx context.Context, environment string, skip, limit int) ([]domain.Topic, error) {
	skip, limit = clampPage(skip, limit)
	return s.topics.List(ctx, environment, skip, limit)
}

func (s *topicService) History(ctx context.Context, topicID int64) ([]domain.TopicHistory, error) {
	if _, err := s.Get(ctx, topicID); err != nil {
		return nil, err
	}
	return s.topics.ListHistory(ctx, topicID)
}
