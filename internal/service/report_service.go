package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"userhub/internal/domain"
	"userhub/internal/repository"
)

// Report types follow the numbering of the original reporting sheet.
const (
	ReportTopicsWithoutProducers = 1
	ReportTopicsWithoutConsumers = 2
	ReportTopicsSilent30Days     = 3
	ReportTopicsSilent60Days     = 4
	ReportTopicsSilent90Days     = 5
	ReportTopicsMultipleProduced = 6
	ReportTopicsNoComponent      = 7
	ReportTopicsNotDocumented    = 8
	ReportTopicsRecentlyModified = 9
	ReportTopicsBadEnvironment   = 10
)

var reportNames = map[int]string{
	ReportTopicsWithoutProducers: "topics without producers",
	ReportTopicsWithoutConsumers: "topics without consumers",
	ReportTopicsSilent30Days:     "topics silent for 30 days",
	ReportTopicsSilent60Days:     "topics silent for 60 days",
	ReportTopicsSilent90Days:     "topics silent for 90 days",
	ReportTopicsMultipleProduced: "topics with multiple producers",
	ReportTopicsNoComponent:      "topics without a registered component",
	ReportTopicsNotDocumented:    "topics not documented",
	ReportTopicsRecentlyModified: "topics modified in the last 30 days",
	ReportTopicsBadEnvironment:   "topics with unexpected environment",
}

// IDProbe is the outcome of a next-available-ID request.
type IDProbe struct {
	Entity      string
	RequestedID int64
	AvailableID int64
	IsAvailable bool
}

// ReportService generates and stores the canned topic reports.
type ReportService interface {
	Generate(ctx context.Context, reportType int, generatedBy string, params map[string]any) (*domain.Report, error)
	Get(ctx context.Context, id int64) (*domain.Report, error)
	List(ctx context.Context, reportType, skip, limit int) ([]domain.Report, error)
	Items(ctx context.Context, reportID int64) ([]domain.ReportItem, error)
	NextAvailableID(ctx context.Context, entity string, requested int64) (*IDProbe, error)
}

// entityTables maps API entity names to their backing tables for ID probes.
// "application_component" is the older wire name for components and stays
// accepted as an alias.
var entityTables = map[string]string{
	"user":                  "users",
	"file":                  "snapshot_files",
	"component":             "components",
	"application_component": "components",
	"interface_type":        "interface_types",
	"interface":             "interfaces",
	"topic":                 "topics",
	"report":                "reports",
}

type reportService struct {
	reports   repository.ReportRepository
	topics    repository.TopicRepository
	sequences repository.SequenceRepository
}

func NewReportService(
	reports repository.ReportRepository,
	topics repository.TopicRepository,
	sequences repository.SequenceRepository,
) ReportService {
	return &reportService{
		reports:   reports,
		topics:    topics,
		sequences: sequences,
	}
}

func (s *reportService) Generate(ctx context.Context, reportType int, generatedBy string, params map[string]any) (*domain.Report, error) {
	name, ok := reportNames[reportType]
	if !ok {
		return nil, fmt.Errorf("%w: report type must be between 1 and 10", ErrInvalid)
	}

	items, err := s.collect(ctx, reportType)
	if err != nil {
		return nil, err
	}

	report := &domain.Report{
		Type:         reportType,
		Name:         name,
		GeneratedBy:  generatedBy,
		Parameters:   params,
		ResultsCount: len(items),
	}
	if _, err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	if err := s.reports.AddItems(ctx, report.ID, items); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *reportService) collect(ctx context.Context, reportType int) ([]domain.ReportItem, error) {
	now := time.Now().UTC()

	switch reportType {
	case ReportTopicsWithoutProducers:
		topics, err := s.topics.ListWithoutProducers(ctx)
		return itemsFromTopics(topics, "no producers"), err
	case ReportTopicsWithoutConsumers:
		topics, err := s.topics.ListWithoutConsumers(ctx)
		return itemsFromTopics(topics, "no consumers"), err
	case ReportTopicsSilent30Days:
		topics, err := s.topics.ListSilentSince(ctx, now.AddDate(0, 0, -30))
		return itemsFromTopics(topics, "no messages in 30 days"), err
	case ReportTopicsSilent60Days:
		topics, err := s.topics.ListSilentSince(ctx, now.AddDate(0, 0, -60))
		return itemsFromTopics(topics, "no messages in 60 days"), err
	case ReportTopicsSilent90Days:
		topics, err := s.topics.ListSilentSince(ctx, now.AddDate(0, 0, -90))
		return itemsFromTopics(topics, "no messages in 90 days"), err
	case ReportTopicsMultipleProduced:
		topics, err := s.topics.ListWithMultipleProducers(ctx)
		return itemsFromTopics(topics, "multiple producers"), err
	case ReportTopicsNoComponent:
		topics, err := s.topics.ListWithoutInterface(ctx)
		return itemsFromTopics(topics, "no component registered"), err
	case ReportTopicsNotDocumented:
		// no documentation store exists yet, the report is defined but empty
		return nil, nil
	case ReportTopicsRecentlyModified:
		topics, err := s.topics.ListModifiedSince(ctx, now.AddDate(0, 0, -30))
		return itemsFromTopics(topics, "modified in the last 30 days"), err
	case ReportTopicsBadEnvironment:
		topics, err := s.topics.ListOutsideEnvironments(ctx, "dev", "prod", "e2e")
		return itemsFromTopics(topics, "unexpected environment"), err
	}
	return nil, fmt.Errorf("%w: unknown report type %d", ErrInvalid, reportType)
}

func itemsFromTopics(topics []domain.Topic, reason string) []domain.ReportItem {
	items := make([]domain.ReportItem, 0, len(topics))
	for i := range topics {
		id := topics[i].ID
		data := map[string]any{
			"topic_name":  topics[i].Name,
			"environment": topics[i].Environment,
			"reason":      reason,
		}
		if topics[i].Stats.LastMessageDate != nil {
			data["last_message_date"] = topics[i].Stats.LastMessageDate.Format(time.RFC3339)
		}
		items = append(items, domain.ReportItem{TopicID: &id, Data: data})
	}
	return items
}

func (s *reportService) Get(ctx context.Context, id int64) (*domain.Report, error) {
	report, err := s.reports.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("report %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return report, nil
}

func (s *reportService) List(ctx context.Context, reportType, skip, limit int) ([]domain.Report, error) {
	skip, limit = clampPage(skip, limit)
	return s.reports.List(ctx, reportType, skip, limit)
}

func (s *reportService) Items(ctx context.Context, reportID int64) ([]domain.ReportItem, error) {
	if _, err := s.Get(ctx, reportID); err != nil {
		return nil, err
	}
	return s.reports.ListItems(ctx, reportID)
}

func (s *reportService) NextAvailableID(ctx context.Context, entity string, requested int64) (*IDProbe, error) {
	table, ok := entityTables[entity]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity %q", ErrInvalid, entity)
	}
	if requested < 1 {
		return nil, fmt.Errorf("%w: requested id must be positive", ErrInvalid)
	}

	taken, err := s.sequences.IDExists(ctx, table, requested)
	if err != nil {
		return nil, err
	}
	probe := &IDProbe{
		Entity:      entity,
		RequestedID: requested,
		AvailableID: requested,
		IsAvailable: !taken,
	}
	if taken {
		max, err := s.sequences.MaxID(ctx, table)
		if err != nil {
			return nil, err
		}
		probe.AvailableID = max + 1
	}
	return probe, nil
}
