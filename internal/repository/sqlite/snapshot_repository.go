package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"userhub/internal/domain"
	"userhub/internal/repository"
)

const createSnapshotFilesTable = `
CREATE TABLE IF NOT EXISTS snapshot_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	original_name TEXT NOT NULL,
	uploaded_by TEXT NOT NULL DEFAULT '',
	payload BLOB NOT NULL,
	size INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	archive_location TEXT NOT NULL DEFAULT '',
	uploaded_at DATETIME NOT NULL,
	processed_at DATETIME NULL
);
`

type SnapshotFileRepository struct {
	db *sql.DB
}

func NewSnapshotFileRepository(db *sql.DB) repository.SnapshotFileRepository {
	return &SnapshotFileRepository{db: db}
}

func (r *SnapshotFileRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSnapshotFilesTable); err != nil {
		return fmt.Errorf("create snapshot_files table: %w", err)
	}
	return nil
}

func (r *SnapshotFileRepository) Create(ctx context.Context, file *domain.SnapshotFile) (int64, error) {
	file.UploadedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO snapshot_files (name, original_name, uploaded_by, payload, size, status, archive_location, uploaded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		file.Name,
		file.OriginalName,
		file.UploadedBy,
		file.Payload,
		file.Size,
		string(file.Status),
		file.ArchiveLocation,
		file.UploadedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert snapshot file: %w", repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert snapshot file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot file last insert id: %w", err)
	}
	file.ID = id
	return id, nil
}

func (r *SnapshotFileRepository) Get(ctx context.Context, id int64) (*domain.SnapshotFile, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, original_name, uploaded_by, payload, size, status, archive_location, uploaded_at, processed_at
FROM snapshot_files
WHERE id = ?`,
		id,
	)
	return scanSnapshotFile(row)
}

func (r *SnapshotFileRepository) GetByName(ctx context.Context, name string) (*domain.SnapshotFile, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, original_name, uploaded_by, payload, size, status, archive_location, uploaded_at, processed_at
FROM snapshot_files
WHERE name = ?`,
		name,
	)
	return scanSnapshotFile(row)
}

func (r *SnapshotFileRepository) List(ctx context.Context, skip, limit int) ([]domain.SnapshotFile, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, original_name, uploaded_by, payload, size, status, archive_location, uploaded_at, processed_at
FROM snapshot_files
ORDER BY id
LIMIT ? OFFSET ?`,
		limit,
		skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshot files: %w", err)
	}
	defer rows.Close()

	var files []domain.SnapshotFile
	for rows.Next() {
		file, err := scanSnapshotFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot files: %w", err)
	}
	return files, nil
}

func (r *SnapshotFileRepository) UpdateStatus(ctx context.Context, id int64, status domain.SnapshotStatus, processedAt *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE snapshot_files
SET status=?, processed_at=COALESCE(?, processed_at)
WHERE id=?`,
		string(status),
		nullTime(processedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("update snapshot file status: %w", err)
	}
	return nil
}

func (r *SnapshotFileRepository) SetArchiveLocation(ctx context.Context, id int64, location string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE snapshot_files
SET archive_location=?
WHERE id=?`,
		location,
		id,
	)
	if err != nil {
		return fmt.Errorf("set snapshot archive location: %w", err)
	}
	return nil
}

func scanSnapshotFile(row interface {
	Scan(dest ...any) error
}) (*domain.SnapshotFile, error) {
	var (
		file        domain.SnapshotFile
		status      string
		processedAt sql.NullTime
	)
	if err := row.Scan(
		&file.ID,
		&file.Name,
		&file.OriginalName,
		&file.UploadedBy,
		&file.Payload,
		&file.Size,
		&status,
		&file.ArchiveLocation,
		&file.UploadedAt,
		&processedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot file: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan snapshot file: %w", err)
	}
	file.Status = domain.SnapshotStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		file.ProcessedAt = &t
	}
	return &file, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
