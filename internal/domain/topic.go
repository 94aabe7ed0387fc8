package domain

import "time"

// TopicStats carries the per-topic broker statistics reported in a snapshot.
type TopicStats struct {
	AverageMessageSize float64
	MinimumMessageSize float64
	MaximumMessageSize float64
	EstimatedSize      float64
	LastMessageDate    *time.Time
	LastStatRetrieval  *time.Time
	MessagesLast30d    int64
	PartitionNumber    int
	ReplicationFactor  int
	Retention          string
	TotalMessages      int64
	CleanupPolicy      string
}

// Topic is a message topic tracked across snapshot uploads.
type Topic struct {
	ID           int64
	Name         string
	FileID       int64
	InterfaceID  *int64
	Environment  string
	BridgedTopic string
	Stats        TopicStats
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FirstSeen    time.Time
	LastSeen     time.Time
	Deprecated   bool
	DeprecatedAt *time.Time

	Producers        []string
	Consumers        []string
	MissingProducers []string
	MissingConsumers []string
}

// TopicHistory records a create/update event for a topic during processing.
type TopicHistory struct {
	ID        int64
	TopicID   int64
	FileID    int64
	Action    string
	Changes   map[string]any
	CreatedAt time.Time
}
