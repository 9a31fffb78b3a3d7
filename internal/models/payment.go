package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment types.
const (
	PaymentTypeTaskPayment = "task-payment"
	PaymentTypeWithdrawal  = "withdrawal"
)

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

type Payment struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	AmountCents int64      `json:"amount_cents"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	TaskID      *uuid.UUID `json:"task_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
