package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cehpoint/backend/internal/models"
)

// MatcherUserRepo is the minimal interface required for matching.
type MatcherUserRepo interface {
	ListWorkers(ctx context.Context) ([]*models.User, error)
}

// WorkerRanker ranks eligible workers for a task. Implemented by the AI
// verification client; failures fall back to local filtering.
type WorkerRanker interface {
	MatchWorkers(ctx context.Context, task *models.Task, workers []*models.User) ([]uuid.UUID, error)
}

// Matcher suggests workers for a task.
type Matcher struct {
	Users  MatcherUserRepo
	Ranker WorkerRanker
	Logger *slog.Logger
}

// NewMatcher returns a Matcher. ranker may be nil; matching then relies on
// local filtering alone.
func NewMatcher(users MatcherUserRepo, ranker WorkerRanker, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{Users: users, Ranker: ranker, Logger: logger}
}

// FindCandidates returns active, demo-qualified workers whose skills
// intersect the task's required set. When a ranker is configured its ordering
// is applied on top; a ranker failure is logged and ignored.
func (m *Matcher) FindCandidates(ctx context.Context, task *models.Task) ([]*models.User, error) {
	workers, err := m.Users.ListWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}

	var eligible []*models.User
	for _, w := range workers {
		if w.AccountStatus != models.AccountStatusActive {
			continue
		}
		if !w.DemoTaskCompleted {
			continue
		}
		if !w.HasSkillOverlap(task.Skills) {
			continue
		}
		eligible = append(eligible, w)
	}

	if m.Ranker == nil || len(eligible) < 2 {
		return eligible, nil
	}

	ranked, err := m.Ranker.MatchWorkers(ctx, task, eligible)
	if err != nil {
		m.Logger.Warn("worker ranking failed, using local order", "task_id", task.ID, "error", err)
		return eligible, nil
	}
	return reorder(eligible, ranked), nil
}

// reorder puts ranked workers first, in rank order, followed by any eligible
// workers the ranker omitted.
func reorder(eligible []*models.User, ranked []uuid.UUID) []*models.User {
	byID := make(map[uuid.UUID]*models.User, len(eligible))
	for _, w := range eligible {
		byID[w.ID] = w
	}
	out := make([]*models.User, 0, len(eligible))
	seen := make(map[uuid.UUID]bool, len(ranked))
	for _, id := range ranked {
		if w, ok := byID[id]; ok && !seen[id] {
			out = append(out, w)
			seen[id] = true
		}
	}
	for _, w := range eligible {
		if !seen[w.ID] {
			out = append(out, w)
		}
	}
	return out
}
