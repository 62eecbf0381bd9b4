package models

import "time"

type Enrollment struct {
	ID              int64
	TenantID        string
	UserID          int64
	ContentID       int64
	ParentContentID int64
	ParentID        int64
	ContentType     string
	ElectiveCount   int
	Status          string
	Passed          bool
	Result          float64
	StartedAt       *time.Time
	EndedAt         *time.Time
	ChangedAt       time.Time
	History         []byte
	CreatedBy       int64
}

type Plan struct {
	ID         int64
	TenantID   string
	UserID     int64
	AssignerID int64
	EntityType string
	EntityID   int64
	Status     string
	Archived   bool
	DueAt      time.Time
	CreatedAt  time.Time
	Note       string
	Original   []byte
}

type PlanReference struct {
	ID         int64
	PlanID     int64
	SourceType string
	SourceID   int64
	Status     int
}

type EnrollmentRevision struct {
	ID           int64
	TenantID     string
	EnrollmentID int64
	Snapshot     []byte
	CreatedBy    int64
	CreatedAt    time.Time
}
