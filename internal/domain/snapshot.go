package domain

import "time"

type SnapshotStatus string

const (
	SnapshotStatusPending    SnapshotStatus = "pending"
	SnapshotStatusProcessing SnapshotStatus = "processing"
	SnapshotStatusCompleted  SnapshotStatus = "completed"
	SnapshotStatusError      SnapshotStatus = "error"
)

// SnapshotFile is an uploaded topic inventory snapshot awaiting processing.
// The raw JSON payload is retained so processing can run after upload.
type SnapshotFile struct {
	ID              int64
	Name            string
	OriginalName    string
	UploadedBy      string
	Payload         []byte
	Size            int64
	Status          SnapshotStatus
	ArchiveLocation string
	UploadedAt      time.Time
	ProcessedAt     *time.Time
}
