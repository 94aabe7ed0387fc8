package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"userhub/internal/domain"
	"userhub/internal/repository"
)

const (
	createTopicsTable = `
CREATE TABLE IF NOT EXISTS topics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	file_id INTEGER NOT NULL,
	interface_id INTEGER NULL,
	environment TEXT NOT NULL DEFAULT '',
	bridged_topic TEXT NOT NULL DEFAULT '',
	average_message_size REAL NOT NULL DEFAULT 0,
	minimum_message_size REAL NOT NULL DEFAULT 0,
	maximum_message_size REAL NOT NULL DEFAULT 0,
	estimated_size REAL NOT NULL DEFAULT 0,
	last_message_date DATETIME NULL,
	last_stat_retrieval DATETIME NULL,
	messages_last_30d INTEGER NOT NULL DEFAULT 0,
	partition_number INTEGER NOT NULL DEFAULT 1,
	replication_factor INTEGER NOT NULL DEFAULT 1,
	retention TEXT NOT NULL DEFAULT '',
	total_messages INTEGER NOT NULL DEFAULT 0,
	cleanup_policy TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	first_seen DATETIME NOT NULL,
	last_seen DATETIME NOT NULL,
	deprecated INTEGER NOT NULL DEFAULT 0,
	deprecated_at DATETIME NULL
);
`

	createTopicRelationTables = `
CREATE TABLE IF NOT EXISTS topic_producers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic_id INTEGER NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS topic_consumers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic_id INTEGER NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS topic_missing_producers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic_id INTEGER NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS topic_missing_consumers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic_id INTEGER NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS topic_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic_id INTEGER NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
	file_id INTEGER NOT NULL,
	action TEXT NOT NULL,
	changes TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);
`

	topicColumns = `id, name, file_id, interface_id, environment, bridged_topic,
average_message_size, minimum_message_size, maximum_message_size, estimated_size,
last_message_date, last_stat_retrieval, messages_last_30d, partition_number,
replication_factor, retention, total_messages, cleanup_policy,
created_at, updated_at, first_seen, last_seen, deprecated, deprecated_at`
)

type TopicRepository struct {
	db *sql.DB
}

func NewTopicRepository(db *sql.DB) repository.TopicRepository {
	return &TopicRepository{db: db}
}

func (r *TopicRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTopicsTable); err != nil {
		return fmt.Errorf("create topics table: %w", err)
	}
	for _, stmt := range strings.Split(createTopicRelationTables, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create topic relation tables: %w", err)
		}
	}
	return nil
}

func (r *TopicRepository) Create(ctx context.Context, topic *domain.Topic) (int64, error) {
	now := time.Now().UTC()
	topic.CreatedAt = now
	topic.UpdatedAt = now
	if topic.FirstSeen.IsZero() {
		topic.FirstSeen = now
	}
	if topic.LastSeen.IsZero() {
		topic.LastSeen = now
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO topics (name, file_id, interface_id, environment, bridged_topic,
	average_message_size, minimum_message_size, maximum_message_size, estimated_size,
	last_message_date, last_stat_retrieval, messages_last_30d, partition_number,
	replication_factor, retention, total_messages, cleanup_policy,
	created_at, updated_at, first_seen, last_seen, deprecated, deprecated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		topic.Name,
		topic.FileID,
		topic.InterfaceID,
		topic.Environment,
		topic.BridgedTopic,
		topic.Stats.AverageMessageSize,
		topic.Stats.MinimumMessageSize,
		topic.Stats.MaximumMessageSize,
		topic.Stats.EstimatedSize,
		nullTime(topic.Stats.LastMessageDate),
		nullTime(topic.Stats.LastStatRetrieval),
		topic.Stats.MessagesLast30d,
		topic.Stats.PartitionNumber,
		topic.Stats.ReplicationFactor,
		topic.Stats.Retention,
		topic.Stats.TotalMessages,
		topic.Stats.CleanupPolicy,
		topic.CreatedAt,
		topic.UpdatedAt,
		topic.FirstSeen,
		topic.LastSeen,
		topic.Deprecated,
		nullTime(topic.DeprecatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert topic: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert topic: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("topic last insert id: %w", err)
	}
	topic.ID = id

	if err := r.replaceRelations(ctx, topic); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *TopicRepository) Update(ctx context.Context, topic *domain.Topic) error {
	topic.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
UPDATE topics
SET file_id=?, interface_id=?, environment=?, bridged_topic=?,
	average_message_size=?, minimum_message_size=?, maximum_message_size=?, estimated_size=?,
	last_message_date=?, last_stat_retrieval=?, messages_last_30d=?, partition_number=?,
	replication_factor=?, retention=?, total_messages=?, cleanup_policy=?,
	updated_at=?, last_seen=?, deprecated=?, deprecated_at=?
WHERE id=?`,
		topic.FileID,
		topic.InterfaceID,
		topic.Environment,
		topic.BridgedTopic,
		topic.Stats.AverageMessageSize,
		topic.Stats.MinimumMessageSize,
		topic.Stats.MaximumMessageSize,
		topic.Stats.EstimatedSize,
		nullTime(topic.Stats.LastMessageDate),
		nullTime(topic.Stats.LastStatRetrieval),
		topic.Stats.MessagesLast30d,
		topic.Stats.PartitionNumber,
		topic.Stats.ReplicationFactor,
		topic.Stats.Retention,
		topic.Stats.TotalMessages,
		topic.Stats.CleanupPolicy,
		topic.UpdatedAt,
		topic.LastSeen,
		topic.Deprecated,
		nullTime(topic.DeprecatedAt),
		topic.ID,
	)
	if err != nil {
		return fmt.Errorf("update topic: %w", err)
	}
	return r.replaceRelations(ctx, topic)
}

func (r *TopicRepository) replaceRelations(ctx context.Context, topic *domain.Topic) error {
	lists := map[string][]string{
		"topic_producers":         topic.Producers,
		"topic_consumers":         topic.Consumers,
		"topic_missing_producers": topic.MissingProducers,
		"topic_missing_consumers": topic.MissingConsumers,
	}
	for table, names := range lists {
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE topic_id=?`, table), topic.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		for _, name := range names {
			if _, err := r.db.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s (topic_id, name) VALUES (?, ?)`, table),
				topic.ID, name,
			); err != nil {
				return fmt.Errorf("insert into %s: %w", table, err)
			}
		}
	}
	return nil
}

func (r *TopicRepository) Get(ctx context.Context, id int64) (*domain.Topic, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM topics WHERE id = ?`, topicColumns), id)
	topic, err := scanTopic(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, topic); err != nil {
		return nil, err
	}
	return topic, nil
}

func (r *TopicRepository) GetByName(ctx context.Context, name string) (*domain.Topic, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM topics WHERE name = ?`, topicColumns), name)
	topic, err := scanTopic(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, topic); err != nil {
		return nil, err
	}
	return topic, nil
}

func (r *TopicRepository) loadRelations(ctx context.Context, topic *domain.Topic) error {
	load := func(table string) ([]string, error) {
		rows, err := r.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT name FROM %s WHERE topic_id=? ORDER BY id`, table), topic.ID)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", table, err)
		}
		defer rows.Close()

		var names []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, fmt.Errorf("scan %s row: %w", table, err)
			}
			names = append(names, name)
		}
		return names, rows.Err()
	}

	var err error
	if topic.Producers, err = load("topic_producers"); err != nil {
		return err
	}
	if topic.Consumers, err = load("topic_consumers"); err != nil {
		return err
	}
	if topic.MissingProducers, err = load("topic_missing_producers"); err != nil {
		return err
	}
	if topic.MissingConsumers, err = load("topic_missing_consumers"); err != nil {
		return err
	}
	return nil
}

func (r *TopicRepository) List(ctx context.Context, environment string, skip, limit int) ([]domain.Topic, error) {
	query := fmt.Sprintf(`SELECT %s FROM topics`, topicColumns)
	args := []any{}
	if environment != "" {
		query += ` WHERE environment = ?`
		args = append(args, environment)
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	return r.queryTopics(ctx, query, args...)
}

func (r *TopicRepository) AddHistory(ctx context.Context, entry *domain.TopicHistory) error {
	entry.CreatedAt = time.Now().UTC()
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return fmt.Errorf("marshal history changes: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
INSERT INTO topic_history (topic_id, file_id, action, changes, created_at)
VALUES (?, ?, ?, ?, ?)`,
		entry.TopicID,
		entry.FileID,
		entry.Action,
		string(changes),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert topic history: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("topic history last insert id: %w", err)
	}
	return nil
}

func (r *TopicRepository) ListHistory(ctx context.Context, topicID int64) ([]domain.TopicHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, topic_id, file_id, action, changes, created_at
FROM topic_history
WHERE topic_id = ?
ORDER BY id`,
		topicID,
	)
	if err != nil {
		return nil, fmt.Errorf("list topic history: %w", err)
	}
	defer rows.Close()

	var entries []domain.TopicHistory
	for rows.Next() {
		var (
			entry   domain.TopicHistory
			changes string
		)
		if err := rows.Scan(&entry.ID, &entry.TopicID, &entry.FileID, &entry.Action, &changes, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan topic history row: %w", err)
		}
		if err := json.Unmarshal([]byte(changes), &entry.Changes); err != nil {
			return nil, fmt.Errorf("unmarshal history changes: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *TopicRepository) ListWithoutProducers(ctx context.Context) ([]domain.Topic, error) {
	return r.queryTopics(ctx, fmt.Sprintf(`
SELECT %s FROM topics t
WHERE NOT EXISTS (SELECT 1 FROM topic_producers p WHERE p.topic_id = t.id)
ORDER BY t.id`, topicColumns))
}

func (r *TopicRepository) ListWithoutConsumers(ctx context.Context) ([]domain.Topic, error) {
	return r.queryTopics(ctx, fmt.Sprintf(`
SELECT %s FROM topics t
WHERE NOT EXISTS (SELECT 1 FROM topic_consumers c WHERE c.topic_id = t.id)
ORDER BY t.id`, topicColumns))
}

func (r *TopicRepository) ListSilentSince(ctx context.Context, cutoff time.Time) ([]domain.Topic, error) {
	return r.queryTopics(ctx, fmt.Sprintf(`
SELECT %s FROM topics
WHERE last_message_date IS NULL OR last_message_date < ?
ORDER BY id`, topicColumns), cutoff.UTC())
}

func (r *TopicRepository) ListWithMultipleProducers(ctx context.Context) ([]domain.Topic, error) {
	return r.queryTopics(ctx, fmt.Sprintf(`
SELECT %s FROM topics t
WHERE (SELECT COUNT(*) FROM topic_producers p WHERE p.topic_id = t.id) > 1
ORDER BY t.id`, topicColumns))
}

func (r *TopicRepository) ListWithoutInterface(ctx context.Context) ([]domain.Topic, error) {
	return r.queryTopics(ctx, fmt.Sprintf(`
SELECT %s FROM topics
WHERE interface_id IS NULL
ORDER BY id`, topicColumns))
}

func (r *TopicRepository) ListModifiedSince(ctx context.Context, cutoff time.Time) ([]domain.Topic, error) {
	return r.queryTopics(ctx, fmt.Sprintf(`
SELECT %s FROM topics
WHERE updated_at > ?
ORDER BY id`, topicColumns), cutoff.UTC())
}

func (r *TopicRepository) ListOutsideEnvironments(ctx context.Context, allowed ...string) ([]domain.Topic, error) {
	if len(allowed) == 0 {
		return r.queryTopics(ctx, fmt.Sprintf(`SELECT %s FROM topics ORDER BY id`, topicColumns))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(allowed)), ", ")
	args := make([]any, len(allowed))
	for i, env := range allowed {
		args[i] = env
	}
	return r.queryTopics(ctx, fmt.Sprintf(`
SELECT %s FROM topics
WHERE environment NOT IN (%s)
ORDER BY id`, topicColumns, placeholders), args...)
}

func (r *TopicRepository) queryTopics(ctx context.Context, query string, args ...any) ([]domain.Topic, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []domain.Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *topic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}
	return topics, nil
}

func scanTopic(row interface {
	Scan(dest ...any) error
}) (*domain.Topic, error) {
	var (
		topic        domain.Topic
		interfaceID  sql.NullInt64
		lastMessage  sql.NullTime
		lastStat     sql.NullTime
		deprecatedAt sql.NullTime
	)
	if err := row.Scan(
		&topic.ID,
		&topic.Name,
		&topic.FileID,
		&interfaceID,
		&topic.Environment,
		&topic.BridgedTopic,
		&topic.Stats.AverageMessageSize,
		&topic.Stats.MinimumMessageSize,
		&topic.Stats.MaximumMessageSize,
		&topic.Stats.EstimatedSize,
		&lastMessage,
		&lastStat,
		&topic.Stats.MessagesLast30d,
		&topic.Stats.PartitionNumber,
		&topic.Stats.ReplicationFactor,
		&topic.Stats.Retention,
		&topic.Stats.TotalMessages,
		&topic.Stats.CleanupPolicy,
		&topic.CreatedAt,
		&topic.UpdatedAt,
		&topic.FirstSeen,
		&topic.LastSeen,
		&topic.Deprecated,
		&deprecatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("topic: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan topic: %w", err)
	}
	if interfaceID.Valid {
		v := interfaceID.Int64
		topic.InterfaceID = &v
	}
	if lastMessage.Valid {
		t := lastMessage.Time
		topic.Stats.LastMessageDate = &t
	}
	if lastStat.Valid {
		t := lastStat.Time
		topic.Stats.LastStatRetrieval = &t
	}
	if deprecatedAt.Valid {
		t := deprecatedAt.Time
		topic.DeprecatedAt = &t
	}
	return &topic, nil
}
