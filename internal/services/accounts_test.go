package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/cehpoint/backend/internal/models"
)

// mockAccountRepo mirrors the guarded status UPDATE of the real user repo.
type mockAccountRepo struct {
	workers map[uuid.UUID]*models.User
}

func newMockAccountRepo(workers ...*models.User) *mockAccountRepo {
	m := &mockAccountRepo{workers: make(map[uuid.UUID]*models.User)}
	for _, w := range workers {
		m.workers[w.ID] = w
	}
	return m
}

func (m *mockAccountRepo) ListWorkers(_ context.Context) ([]*models.User, error) {
	out := make([]*models.User, 0, len(m.workers))
	for _, w := range m.workers {
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockAccountRepo) SetAccountStatus(_ context.Context, id uuid.UUID, status string, allowedFrom []string) (bool, error) {
	w, ok := m.workers[id]
	if !ok || w.Role != models.RoleWorker {
		return false, nil
	}
	for _, from := range allowedFrom {
		if w.AccountStatus == from {
			w.AccountStatus = status
			return true, nil
		}
	}
	return false, nil
}

func pendingWorker() *models.User {
	return &models.User{ID: uuid.New(), Role: models.RoleWorker, AccountStatus: models.AccountStatusPending}
}

func TestWorkerAccounts_Transitions(t *testing.T) {
	w := pendingWorker()
	repo := newMockAccountRepo(w)
	svc := NewWorkerAccounts(repo, slog.Default())
	ctx := context.Background()

	// pending -> active -> suspended
	if err := svc.ApproveWorker(ctx, w.ID); err != nil {
		t.Fatalf("ApproveWorker: %v", err)
	}
	if w.AccountStatus != models.AccountStatusActive {
		t.Fatalf("status after approval: got %s, want active", w.AccountStatus)
	}
	if err := svc.SuspendWorker(ctx, w.ID); err != nil {
		t.Fatalf("SuspendWorker: %v", err)
	}
	if w.AccountStatus != models.AccountStatusSuspended {
		t.Fatalf("status after suspension: got %s, want suspended", w.AccountStatus)
	}

	// suspended workers cannot be re-approved; approval only lifts pending.
	if err := svc.ApproveWorker(ctx, w.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("approve of suspended worker: got %v, want ErrInvalidState", err)
	}
}

func TestWorkerAccounts_InvalidTransitions(t *testing.T) {
	w := pendingWorker()
	repo := newMockAccountRepo(w)
	svc := NewWorkerAccounts(repo, slog.Default())
	ctx := context.Background()

	// Suspension requires an active worker.
	if err := svc.SuspendWorker(ctx, w.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("suspend of pending worker: got %v, want ErrInvalidState", err)
	}
	if w.AccountStatus != models.AccountStatusPending {
		t.Errorf("status after refused suspension: got %s, want pending", w.AccountStatus)
	}

	// Unknown worker.
	if err := svc.ApproveWorker(ctx, uuid.New()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("approve of unknown worker: got %v, want ErrInvalidState", err)
	}
}

func TestWorkerAccounts_TerminatedIsAbsorbing(t *testing.T) {
	ctx := context.Background()

	// Termination is reachable from every non-terminal status.
	for _, from := range []string{models.AccountStatusPending, models.AccountStatusActive, models.AccountStatusSuspended} {
		w := pendingWorker()
		w.AccountStatus = from
		svc := NewWorkerAccounts(newMockAccountRepo(w), slog.Default())
		if err := svc.TerminateWorker(ctx, w.ID); err != nil {
			t.Fatalf("terminate from %s: %v", from, err)
		}
		if w.AccountStatus != models.AccountStatusTerminated {
			t.Errorf("status after termination from %s: got %s", from, w.AccountStatus)
		}
	}

	// Nothing leaves terminated.
	w := pendingWorker()
	w.AccountStatus = models.AccountStatusTerminated
	svc := NewWorkerAccounts(newMockAccountRepo(w), slog.Default())

	if err := svc.ApproveWorker(ctx, w.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("approve of terminated worker: got %v, want ErrInvalidState", err)
	}
	if err := svc.SuspendWorker(ctx, w.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("suspend of terminated worker: got %v, want ErrInvalidState", err)
	}
	if err := svc.TerminateWorker(ctx, w.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("re-terminate: got %v, want ErrInvalidState", err)
	}
	if w.AccountStatus != models.AccountStatusTerminated {
		t.Errorf("terminated worker changed status: got %s", w.AccountStatus)
	}
}
