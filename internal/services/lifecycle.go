package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cehpoint/backend/internal/models"
)

// LifecycleTaskRepo is the minimal task repository interface for the engine.
type LifecycleTaskRepo interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Assign(ctx context.Context, id, workerID uuid.UUID) (bool, error)
	SetSubmitted(ctx context.Context, id uuid.UUID, submissionURL string) (bool, error)
	SetCompletedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, completedAt time.Time) (bool, error)
	SetRejected(ctx context.Context, id uuid.UUID, feedback string) (bool, error)
}

// LifecycleUserRepo is the minimal user repository interface for settlement.
type LifecycleUserRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	AddBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error)
	DeductBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (newBalance int64, err error)
}

// LifecyclePaymentRepo records the economic events the engine produces.
type LifecyclePaymentRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, p *models.Payment) error
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Lifecycle owns every state transition for tasks, balances, and payments.
// Nothing else writes task status or user balance.
type Lifecycle struct {
	Pool        TxBeginner
	TaskRepo    LifecycleTaskRepo
	UserRepo    LifecycleUserRepo
	PaymentRepo LifecyclePaymentRepo
	Logger      *slog.Logger
}

// NewLifecycle returns a Lifecycle service.
func NewLifecycle(pool TxBeginner, taskRepo LifecycleTaskRepo, userRepo LifecycleUserRepo, paymentRepo LifecyclePaymentRepo, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{Pool: pool, TaskRepo: taskRepo, UserRepo: userRepo, PaymentRepo: paymentRepo, Logger: logger}
}

// CreateTaskInput carries the admin-provided task content.
type CreateTaskInput struct {
	Title             string
	Description       string
	Category          string
	Skills            []string
	WeeklyPayoutCents int64
	Deadline          time.Time
}

// CreateTask creates an available task. All content fields are required.
func (s *Lifecycle) CreateTask(ctx context.Context, admin *models.User, in CreateTaskInput) (*models.Task, error) {
	switch {
	case in.Title == "":
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	case in.Description == "":
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	case in.Category == "":
		return nil, fmt.Errorf("%w: category is required", ErrValidation)
	case len(in.Skills) == 0:
		return nil, fmt.Errorf("%w: at least one skill is required", ErrValidation)
	case in.WeeklyPayoutCents <= 0:
		return nil, fmt.Errorf("%w: weekly payout must be positive", ErrValidation)
	case in.Deadline.IsZero():
		return nil, fmt.Errorf("%w: deadline is required", ErrValidation)
	}

	task := &models.Task{
		ID:                uuid.New(),
		CreatedBy:         admin.ID,
		Title:             in.Title,
		Description:       in.Description,
		Category:          in.Category,
		Skills:            in.Skills,
		WeeklyPayoutCents: in.WeeklyPayoutCents,
		Deadline:          in.Deadline,
		Status:            models.TaskStatusAvailable,
	}
	if err := s.TaskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// AcceptTask moves an available task to in-progress for the given worker.
// The worker must have passed the demo task and share a skill with the task.
func (s *Lifecycle) AcceptTask(ctx context.Context, worker *models.User, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.TaskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.Status != models.TaskStatusAvailable {
		return nil, fmt.Errorf("%w: task is %s, not available", ErrInvalidState, task.Status)
	}
	if !worker.DemoTaskCompleted {
		return nil, fmt.Errorf("%w: complete the demo task before accepting tasks", ErrInvalidState)
	}
	if !worker.HasSkillOverlap(task.Skills) {
		return nil, fmt.Errorf("%w: worker skills do not match task requirements", ErrValidation)
	}

	ok, err := s.TaskRepo.Assign(ctx, task.ID, worker.ID)
	if err != nil {
		return nil, fmt.Errorf("assign task: %w", err)
	}
	if !ok {
		// Lost to a concurrent accept.
		return nil, fmt.Errorf("%w: task is no longer available", ErrInvalidState)
	}
	task.Status = models.TaskStatusInProgress
	task.AssignedTo = &worker.ID
	return task, nil
}

// SubmitTask records the worker's submission URL and moves the task to submitted.
func (s *Lifecycle) SubmitTask(ctx context.Context, worker *models.User, taskID uuid.UUID, submissionURL string) (*models.Task, error) {
	if submissionURL == "" {
		return nil, fmt.Errorf("%w: submission URL is required", ErrValidation)
	}
	task, err := s.TaskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.AssignedTo == nil || *task.AssignedTo != worker.ID {
		return nil, fmt.Errorf("%w: caller is not the assigned worker", ErrInvalidState)
	}
	if task.Status != models.TaskStatusInProgress {
		return nil, fmt.Errorf("%w: task is %s, not in-progress", ErrInvalidState, task.Status)
	}

	ok, err := s.TaskRepo.SetSubmitted(ctx, task.ID, submissionURL)
	if err != nil {
		return nil, fmt.Errorf("submit task: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: task is no longer in-progress", ErrInvalidState)
	}
	task.Status = models.TaskStatusSubmitted
	task.SubmissionURL = submissionURL
	return task, nil
}

// ApproveTask completes a submitted task: in one transaction it finalizes the
// task, credits the assigned worker's balance by the weekly payout, and
// records a completed task-payment. A task with no assignee is refused with
// no mutation.
func (s *Lifecycle) ApproveTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.TaskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.AssignedTo == nil {
		return nil, fmt.Errorf("%w: task has no assigned worker", ErrInvalidState)
	}
	if task.Status != models.TaskStatusSubmitted {
		return nil, fmt.Errorf("%w: task is %s, not submitted", ErrInvalidState, task.Status)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin settle tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	ok, err := s.TaskRepo.SetCompletedTx(ctx, tx, task.ID, now)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: task is no longer submitted", ErrInvalidState)
	}

	workerID := *task.AssignedTo
	if _, err := s.UserRepo.GetByIDForUpdate(ctx, tx, workerID); err != nil {
		return nil, fmt.Errorf("lock worker: %w", err)
	}
	newBalance, err := s.UserRepo.AddBalance(ctx, tx, workerID, task.WeeklyPayoutCents)
	if err != nil {
		return nil, fmt.Errorf("credit worker: %w", err)
	}

	payment := &models.Payment{
		ID:          uuid.New(),
		UserID:      workerID,
		AmountCents: task.WeeklyPayoutCents,
		Type:        models.PaymentTypeTaskPayment,
		Status:      models.PaymentStatusCompleted,
		TaskID:      &task.ID,
		CompletedAt: &now,
	}
	if err := s.PaymentRepo.CreateTx(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit settle tx: %w", err)
	}

	s.Logger.Info("task approved",
		"task_id", task.ID, "worker_id", workerID,
		"amount_cents", task.WeeklyPayoutCents, "worker_balance_cents", newBalance)

	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &now
	return task, nil
}

// RejectTask moves a submitted task to rejected with the given feedback.
// No payment is created and no balance changes.
func (s *Lifecycle) RejectTask(ctx context.Context, taskID uuid.UUID, feedback string) (*models.Task, error) {
	if feedback == "" {
		return nil, fmt.Errorf("%w: feedback is required", ErrValidation)
	}
	task, err := s.TaskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.AssignedTo == nil {
		return nil, fmt.Errorf("%w: task has no assigned worker", ErrInvalidState)
	}
	if task.Status != models.TaskStatusSubmitted {
		return nil, fmt.Errorf("%w: task is %s, not submitted", ErrInvalidState, task.Status)
	}

	ok, err := s.TaskRepo.SetRejected(ctx, task.ID, feedback)
	if err != nil {
		return nil, fmt.Errorf("reject task: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: task is no longer submitted", ErrInvalidState)
	}
	task.Status = models.TaskStatusRejected
	task.Feedback = feedback
	return task, nil
}
