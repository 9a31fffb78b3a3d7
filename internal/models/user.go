package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleWorker = "worker"
	RoleAdmin  = "admin"
)

// Worker account lifecycle statuses. Admins are implicitly active.
const (
	AccountStatusPending    = "pending"
	AccountStatusActive     = "active"
	AccountStatusSuspended  = "suspended"
	AccountStatusTerminated = "terminated"
)

// PassingScore is the minimum knowledge-check score for worker signup
// and demo-task grading. A score of exactly 60 passes.
const PassingScore = 60.0

// PayoutAccount is the external destination for withdrawals. Withdrawals
// are refused until it is verified.
type PayoutAccount struct {
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
	Verified  bool   `json:"verified"`
}

type User struct {
	ID                uuid.UUID      `json:"id"`
	Email             string         `json:"email"`
	PasswordHash      string         `json:"-"`
	Role              string         `json:"role"`
	FullName          string         `json:"full_name"`
	Phone             string         `json:"phone"`
	Skills            []string       `json:"skills"`
	Experience        string         `json:"experience"`
	Timezone          string         `json:"timezone"`
	AccountStatus     string         `json:"account_status"`
	BalanceCents      int64          `json:"balance_cents"`
	PayoutAccount     *PayoutAccount `json:"payout_account,omitempty"`
	KnowledgeScore    float64        `json:"knowledge_score"`
	DemoTaskCompleted bool           `json:"demo_task_completed"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// HasSkillOverlap reports whether the user shares at least one skill with
// the given required set.
func (u *User) HasSkillOverlap(required []string) bool {
	for _, r := range required {
		for _, s := range u.Skills {
			if s == r {
				return true
			}
		}
	}
	return false
}
