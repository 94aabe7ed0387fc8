package domain

import "time"

// Report is a stored run of one of the canned topic reports.
type Report struct {
	ID              int64
	Type            int
	Name            string
	GeneratedAt     time.Time
	GeneratedBy     string
	Parameters      map[string]any
	ResultsCount    int
	ArchiveLocation string
}

// ReportItem is a single row produced by a report run.
type ReportItem struct {
	ID        int64
	ReportID  int64
	TopicID   *int64
	Data      map[string]any
	CreatedAt time.Time
}
