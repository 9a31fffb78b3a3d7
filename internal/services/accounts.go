package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cehpoint/backend/internal/models"
)

// AccountUserRepo is the user repository interface for worker lifecycle
// management.
type AccountUserRepo interface {
	ListWorkers(ctx context.Context) ([]*models.User, error)
	SetAccountStatus(ctx context.Context, id uuid.UUID, status string, allowedFrom []string) (bool, error)
}

// WorkerAccounts applies admin transitions on worker account status.
// terminated is absorbing: no transition leaves it.
type WorkerAccounts struct {
	Users  AccountUserRepo
	Logger *slog.Logger
}

func NewWorkerAccounts(users AccountUserRepo, logger *slog.Logger) *WorkerAccounts {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerAccounts{Users: users, Logger: logger}
}

func (s *WorkerAccounts) ListWorkers(ctx context.Context) ([]*models.User, error) {
	return s.Users.ListWorkers(ctx)
}

// ApproveWorker moves a pending worker to active.
func (s *WorkerAccounts) ApproveWorker(ctx context.Context, workerID uuid.UUID) error {
	return s.transition(ctx, workerID, models.AccountStatusActive,
		[]string{models.AccountStatusPending})
}

// SuspendWorker moves an active worker to suspended.
func (s *WorkerAccounts) SuspendWorker(ctx context.Context, workerID uuid.UUID) error {
	return s.transition(ctx, workerID, models.AccountStatusSuspended,
		[]string{models.AccountStatusActive})
}

// TerminateWorker moves any non-terminated worker to terminated.
func (s *WorkerAccounts) TerminateWorker(ctx context.Context, workerID uuid.UUID) error {
	return s.transition(ctx, workerID, models.AccountStatusTerminated,
		[]string{models.AccountStatusPending, models.AccountStatusActive, models.AccountStatusSuspended})
}

func (s *WorkerAccounts) transition(ctx context.Context, workerID uuid.UUID, to string, allowedFrom []string) error {
	ok, err := s.Users.SetAccountStatus(ctx, workerID, to, allowedFrom)
	if err != nil {
		return fmt.Errorf("set account status: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: worker cannot move to %s", ErrInvalidState, to)
	}
	s.Logger.Info("worker account status changed", "worker_id", workerID, "status", to)
	return nil
}
