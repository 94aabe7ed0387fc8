package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"userhub/internal/domain"
	"userhub/internal/repository"
)

const (
	createReportsTable = `
CREATE TABLE IF NOT EXISTS reports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	report_type INTEGER NOT NULL,
	name TEXT NOT NULL,
	generated_at DATETIME NOT NULL,
	generated_by TEXT NOT NULL DEFAULT '',
	parameters TEXT NOT NULL DEFAULT '{}',
	results_count INTEGER NOT NULL DEFAULT 0,
	archive_location TEXT NOT NULL DEFAULT ''
);
`
	createReportItemsTable = `
CREATE TABLE IF NOT EXISTS report_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
	topic_id INTEGER NULL,
	item_data TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
);
`
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) repository.ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createReportsTable); err != nil {
		return fmt.Errorf("create reports table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createReportItemsTable); err != nil {
		return fmt.Errorf("create report_items table: %w", err)
	}
	return nil
}

func (r *ReportRepository) Create(ctx context.Context, report *domain.Report) (int64, error) {
	report.GeneratedAt = time.Now().UTC()
	params, err := json.Marshal(report.Parameters)
	if err != nil {
		return 0, fmt.Errorf("marshal report parameters: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO reports (report_type, name, generated_at, generated_by, parameters, results_count, archive_location)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.Type,
		report.Name,
		report.GeneratedAt,
		report.GeneratedBy,
		string(params),
		report.ResultsCount,
		report.ArchiveLocation,
	)
	if err != nil {
		return 0, fmt.Errorf("insert report: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("report last insert id: %w", err)
	}
	report.ID = id
	return id, nil
}

func (r *ReportRepository) AddItems(ctx context.Context, reportID int64, items []domain.ReportItem) error {
	now := time.Now().UTC()
	for i := range items {
		data, err := json.Marshal(items[i].Data)
		if err != nil {
			return fmt.Errorf("marshal report item data: %w", err)
		}
		var topicID any
		if items[i].TopicID != nil {
			topicID = *items[i].TopicID
		}
		if _, err := r.db.ExecContext(ctx, `
INSERT INTO report_items (report_id, topic_id, item_data, created_at)
VALUES (?, ?, ?, ?)`,
			reportID,
			topicID,
			string(data),
			now,
		); err != nil {
			return fmt.Errorf("insert report item: %w", err)
		}
	}
	return nil
}

func (r *ReportRepository) Get(ctx context.Context, id int64) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, report_type, name, generated_at, generated_by, parameters, results_count, archive_location
FROM reports
WHERE id = ?`,
		id,
	)
	return scanReport(row)
}

func (r *ReportRepository) List(ctx context.Context, reportType int, skip, limit int) ([]domain.Report, error) {
	query := `
SELECT id, report_type, name, generated_at, generated_by, parameters, results_count, archive_location
FROM reports`
	args := []any{}
	if reportType > 0 {
		query += ` WHERE report_type = ?`
		args = append(args, reportType)
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

func (r *ReportRepository) ListItems(ctx context.Context, reportID int64) ([]domain.ReportItem, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, report_id, topic_id, item_data, created_at
FROM report_items
WHERE report_id = ?
ORDER BY id`,
		reportID,
	)
	if err != nil {
		return nil, fmt.Errorf("list report items: %w", err)
	}
	defer rows.Close()

	var items []domain.ReportItem
	for rows.Next() {
		var (
			item    domain.ReportItem
			topicID sql.NullInt64
			data    string
		)
		if err := rows.Scan(&item.ID, &item.ReportID, &topicID, &data, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report item row: %w", err)
		}
		if topicID.Valid {
			v := topicID.Int64
			item.TopicID = &v
		}
		if err := json.Unmarshal([]byte(data), &item.Data); err != nil {
			return nil, fmt.Errorf("unmarshal report item data: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanReport(row interface {
	Scan(dest ...any) error
}) (*domain.Report, error) {
	var (
		report domain.Report
		params string
	)
	if err := row.Scan(
		&report.ID,
		&report.Type,
		&report.Name,
		&report.GeneratedAt,
		&report.GeneratedBy,
		&params,
		&report.ResultsCount,
		&report.ArchiveLocation,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("report: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &report.Parameters); err != nil {
		return nil, fmt.Errorf("unmarshal report parameters: %w", err)
	}
	return &report, nil
}

// SequenceRepository answers ID probes against a fixed set of tables.
type SequenceRepository struct {
	db *sql.DB
}

func NewSequenceRepository(db *sql.DB) repository.SequenceRepository {
	return &SequenceRepository{db: db}
}

func (r *SequenceRepository) IDExists(ctx context.Context, table string, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE id=?`, table), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check id in %s: %w", table, err)
	}
	return true, nil
}

func (r *SequenceRepository) MaxID(ctx context.Context, table string) (int64, error) {
	var max sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT MAX(id) FROM %s`, table)).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max id in %s: %w", table, err)
	}
	return max.Int64, nil
}
