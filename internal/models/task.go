package models

import (
	"time"

	"github.com/google/uuid"
)

// Task statuses. completed and rejected are terminal.
const (
	TaskStatusAvailable  = "available"
	TaskStatusInProgress = "in-progress"
	TaskStatusSubmitted  = "submitted"
	TaskStatusCompleted  = "completed"
	TaskStatusRejected   = "rejected"
)

type Task struct {
	ID                uuid.UUID  `json:"id"`
	CreatedBy         uuid.UUID  `json:"created_by"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	Skills            []string   `json:"skills"`
	WeeklyPayoutCents int64      `json:"weekly_payout_cents"`
	Deadline          time.Time  `json:"deadline"`
	Status            string     `json:"status"`
	AssignedTo        *uuid.UUID `json:"assigned_to,omitempty"`
	SubmissionURL     string     `json:"submission_url,omitempty"`
	Feedback          string     `json:"feedback,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsTerminal reports whether no further status transition is allowed.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusRejected
}
