package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"userhub/internal/domain"
	"userhub/internal/repository"
	"userhub/internal/storage"
)

// snapshotPayload is the wire format of an uploaded topic inventory snapshot.
type snapshotPayload struct {
	CreatedAt time.Time     `json:"created_at"`
	Topics    []topicImport `json:"topics"`
}

type topicImport struct {
	Name             string           `json:"name"`
	BridgedTopic     string           `json:"bridged_topic"`
	Producers        []string         `json:"producers"`
	Consumers        []string         `json:"consumers"`
	MissingProducers []string         `json:"missing_producers"`
	MissingConsumers []string         `json:"missing_consumers"`
	Stats            topicImportStats `json:"stats"`
}

type topicImportStats struct {
	AverageMessageSize    float64    `json:"average_message_size"`
	CleanupPolicy         string     `json:"cleanup_policy"`
	EstimatedSize         float64    `json:"estimated_size"`
	LastMessageDate       *time.Time `json:"last_message_date"`
	LastStatRetrievalDate *time.Time `json:"last_stat_retrieval_date"`
	MaximumMessageSize    float64    `json:"maximum_message_size"`
	MinimumMessageSize    float64    `json:"minimum_message_size"`
	MessagesLast30d       int64      `json:"messages_last_30d"`
	PartitionNumber       int        `json:"partition_number"`
	ReplicationFactor     int        `json:"replication_factor"`
	Retention             string     `json:"retention"`
	TotalMessages         int64      `json:"total_messages"`
}

// ProcessingResult summarizes one processing run over a snapshot file.
type ProcessingResult struct {
	FileID          int64
	Status          domain.SnapshotStatus
	TopicsProcessed int
	TopicsCreated   int
	TopicsUpdated   int
	Errors          []string
	Warnings        []string
}

// SnapshotService handles snapshot upload and processing.
type SnapshotService interface {
	Upload(ctx context.Context, filename, uploadedBy, contentB64 string) (*domain.SnapshotFile, error)
	Process(ctx context.Context, fileID int64) (*ProcessingResult, error)
	Get(ctx context.Context, id int64) (*domain.SnapshotFile, error)
	List(ctx context.Context, skip, limit int) ([]domain.SnapshotFile, error)
}

type snapshotService struct {
	files   repository.SnapshotFileRepository
	topics  repository.TopicRepository
	archive storage.Service
	opts    storage.UploadOptions
	logger  *logrus.Logger
}

// NewSnapshotService builds a snapshot service. archive may be nil when no
// object storage is configured; payloads are then kept only in the database.
func NewSnapshotService(
	files repository.SnapshotFileRepository,
	topics repository.TopicRepository,
	archive storage.Service,
	opts storage.UploadOptions,
	logger *logrus.Logger,
) SnapshotService {
	return &snapshotService{
		files:   files,
		topics:  topics,
		archive: archive,
		opts:    opts,
		logger:  logger,
	}
}

func (s *snapshotService) Upload(ctx context.Context, filename, uploadedBy, contentB64 string) (*domain.SnapshotFile, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalid)
	}

	raw, err := base64.StdEncoding.DecodeString(contentB64)
	if err != nil {
		return nil, fmt.Errorf("%w: content is not valid base64: %v", ErrInvalid, err)
	}
	payload, err := parseSnapshot(raw)
	if err != nil {
		return nil, err
	}

	storedName := fmt.Sprintf("%s %s", strings.ToLower(filename), time.Now().UTC().Format("2006-01-02 15:04:05"))
	if _, err := s.files.GetByName(ctx, storedName); err == nil {
		return nil, fmt.Errorf("snapshot file %q: %w", storedName, ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	file := &domain.SnapshotFile{
		Name:         storedName,
		OriginalName: filename,
		UploadedBy:   uploadedBy,
		Payload:      raw,
		Size:         int64(len(raw)),
		Status:       domain.SnapshotStatusPending,
	}
	if _, err := s.files.Create(ctx, file); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("snapshot file %q: %w", storedName, ErrConflict)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"file_id": file.ID,
		"name":    file.Name,
		"topics":  len(payload.Topics),
	}).Info("snapshot uploaded")

	if s.archive != nil {
		key := fmt.Sprintf("%s.json", uuid.NewString())
		location, err := s.archive.UploadPayload(ctx, s.opts, key, raw, "application/json")
		if err != nil {
			// the database copy is authoritative, archive is best effort
			s.logger.WithError(err).Warn("archive snapshot payload")
		} else if err := s.files.SetArchiveLocation(ctx, file.ID, location); err != nil {
			s.logger.WithError(err).Warn("record snapshot archive location")
		} else {
			file.ArchiveLocation = location
		}
	}

	return file, nil
}

func (s *snapshotService) Process(ctx context.Context, fileID int64) (*ProcessingResult, error) {
	file, err := s.files.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("snapshot file %d: %w", fileID, ErrNotFound)
		}
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.files.UpdateStatus(ctx, file.ID, domain.SnapshotStatusProcessing, &now); err != nil {
		return nil, err
	}

	payload, err := parseSnapshot(file.Payload)
	if err != nil {
		_ = s.files.UpdateStatus(ctx, file.ID, domain.SnapshotStatusError, nil)
		return nil, err
	}

	result := &ProcessingResult{
		FileID:          file.ID,
		Status:          domain.SnapshotStatusProcessing,
		TopicsProcessed: len(payload.Topics),
	}

	for _, imp := range payload.Topics {
		created, err := s.upsertTopic(ctx, file.ID, imp)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("topic %s: %v", imp.Name, err))
			continue
		}
		if created {
			result.TopicsCreated++
		} else {
			result.TopicsUpdated++
		}
	}

	if err := s.files.UpdateStatus(ctx, file.ID, domain.SnapshotStatusCompleted, nil); err != nil {
		return nil, err
	}
	result.Status = domain.SnapshotStatusCompleted

	s.logger.WithFields(logrus.Fields{
		"file_id": file.ID,
		"created": result.TopicsCreated,
		"updated": result.TopicsUpdated,
		"errors":  len(result.Errors),
	}).Info("snapshot processed")

	return result, nil
}

func (s *snapshotService) upsertTopic(ctx context.Context, fileID int64, imp topicImport) (bool, error) {
	stats := importedStats(imp.Stats)

	existing, err := s.topics.GetByName(ctx, imp.Name)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return false, err
		}

		topic := &domain.Topic{
			Name:             imp.Name,
			FileID:           fileID,
			Environment:      detectEnvironment(imp.Name),
			BridgedTopic:     imp.BridgedTopic,
			Stats:            stats,
			Producers:        imp.Producers,
			Consumers:        imp.Consumers,
			MissingProducers: imp.MissingProducers,
			MissingConsumers: imp.MissingConsumers,
		}
		if _, err := s.topics.Create(ctx, topic); err != nil {
			return false, err
		}
		return true, s.topics.AddHistory(ctx, &domain.TopicHistory{
			TopicID: topic.ID,
			FileID:  fileID,
			Action:  "created",
			Changes: map[string]any{"name": imp.Name},
		})
	}

	changes := diffTopic(existing, imp.BridgedTopic, stats)
	existing.FileID = fileID
	existing.BridgedTopic = imp.BridgedTopic
	existing.Stats = stats
	existing.LastSeen = time.Now().UTC()
	existing.Producers = imp.Producers
	existing.Consumers = imp.Consumers
	existing.MissingProducers = imp.MissingProducers
	existing.MissingConsumers = imp.MissingConsumers

	if err := s.topics.Update(ctx, existing); err != nil {
		return false, err
	}
	if len(changes) > 0 {
		if err := s.topics.AddHistory(ctx, &domain.TopicHistory{
			TopicID: existing.ID,
			FileID:  fileID,
			Action:  "updated",
			Changes: changes,
		}); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (s *snapshotService) Get(ctx context.Context, id int64) (*domain.SnapshotFile, error) {
	file, err := s.files.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("snapshot file %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return file, nil
}

func (s *snapshotService) List(ctx context.Context, skip, limit int) ([]domain.SnapshotFile, error) {
	skip, limit = clampPage(skip, limit)
	return s.files.List(ctx, skip, limit)
}

func parseSnapshot(raw []byte) (*snapshotPayload, error) {
	var payload snapshotPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid snapshot JSON: %v", ErrInvalid, err)
	}
	if payload.CreatedAt.IsZero() {
		return nil, fmt.Errorf("%w: snapshot created_at is required", ErrInvalid)
	}
	if len(payload.Topics) == 0 {
		return nil, fmt.Errorf("%w: snapshot topics list cannot be empty", ErrInvalid)
	}
	for _, t := range payload.Topics {
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("%w: snapshot contains a topic without a name", ErrInvalid)
		}
	}
	return &payload, nil
}

func importedStats(in topicImportStats) domain.TopicStats {
	return domain.TopicStats{
		AverageMessageSize: in.AverageMessageSize,
		MinimumMessageSize: in.MinimumMessageSize,
		MaximumMessageSize: in.MaximumMessageSize,
		EstimatedSize:      in.EstimatedSize,
		LastMessageDate:    in.LastMessageDate,
		LastStatRetrieval:  in.LastStatRetrievalDate,
		MessagesLast30d:    in.MessagesLast30d,
		PartitionNumber:    in.PartitionNumber,
		ReplicationFactor:  in.ReplicationFactor,
		Retention:          in.Retention,
		TotalMessages:      in.TotalMessages,
		CleanupPolicy:      in.CleanupPolicy,
	}
}

func diffTopic(existing *domain.Topic, bridged string, stats domain.TopicStats) map[string]any {
	changes := map[string]any{}
	if existing.BridgedTopic != bridged {
		changes["bridged_topic"] = bridged
	}
	old := existing.Stats
	if old.TotalMessages != stats.TotalMessages {
		changes["total_messages"] = stats.TotalMessages
	}
	if old.MessagesLast30d != stats.MessagesLast30d {
		changes["messages_last_30d"] = stats.MessagesLast30d
	}
	if old.PartitionNumber != stats.PartitionNumber {
		changes["partition_number"] = stats.PartitionNumber
	}
	if old.ReplicationFactor != stats.ReplicationFactor {
		changes["replication_factor"] = stats.ReplicationFactor
	}
	if old.Retention != stats.Retention {
		changes["retention"] = stats.Retention
	}
	if old.CleanupPolicy != stats.CleanupPolicy {
		changes["cleanup_policy"] = stats.CleanupPolicy
	}
	if old.AverageMessageSize != stats.AverageMessageSize {
		changes["average_message_size"] = stats.AverageMessageSize
	}
	if old.EstimatedSize != stats.EstimatedSize {
		changes["estimated_size"] = stats.EstimatedSize
	}
	if !equalTime(old.LastMessageDate, stats.LastMessageDate) {
		changes["last_message_date"] = stats.LastMessageDate
	}
	return changes
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func detectEnvironment(topicName string) string {
	name := strings.ToLower(topicName)
	switch {
	case strings.Contains(name, "dev"):
		return "dev"
	case strings.Contains(name, "prod"):
		return "prod"
	case strings.Contains(name, "e2e"), strings.Contains(name, "test"):
		return "e2e"
	}
	return ""
}
