package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cehpoint/backend/internal/models"
)

const taskColumns = `id, created_by, title, description, category, skills, weekly_payout_cents,
	deadline, status, assigned_to, submission_url, feedback, created_at, completed_at, updated_at`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.CreatedBy, &t.Title, &t.Description, &t.Category, &t.Skills,
		&t.WeeklyPayoutCents, &t.Deadline, &t.Status, &t.AssignedTo, &t.SubmissionURL,
		&t.Feedback, &t.CreatedAt, &t.CompletedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, created_by, title, description, category, skills, weekly_payout_cents,
			deadline, status, assigned_to, submission_url, feedback)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, t.ID, t.CreatedBy, t.Title, t.Description, t.Category, t.Skills, t.WeeklyPayoutCents,
		t.Deadline, t.Status, t.AssignedTo, t.SubmissionURL, t.Feedback).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

func (r *TaskRepo) List(ctx context.Context) ([]*models.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
}

func (r *TaskRepo) ListByAssignee(ctx context.Context, workerID uuid.UUID) ([]*models.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE assigned_to = $1 ORDER BY created_at DESC`, workerID)
}

func (r *TaskRepo) ListAvailable(ctx context.Context) ([]*models.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = $1 ORDER BY created_at DESC`, models.TaskStatusAvailable)
}

func (r *TaskRepo) list(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// The transition methods below guard on the current status in the WHERE
// clause, so a writer acting on a stale read updates zero rows instead of
// overwriting a concurrent transition.

// Assign moves an available task to in-progress for the given worker.
func (r *TaskRepo) Assign(ctx context.Context, id, workerID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, assigned_to = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`, id, models.TaskStatusInProgress, workerID, models.TaskStatusAvailable)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetSubmitted records the submission URL and moves the task to submitted.
func (r *TaskRepo) SetSubmitted(ctx context.Context, id uuid.UUID, submissionURL string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, submission_url = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`, id, models.TaskStatusSubmitted, submissionURL, models.TaskStatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetCompletedTx finalizes a submitted task inside the settlement transaction.
func (r *TaskRepo) SetCompletedTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, completedAt time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, completed_at = $3, updated_at = now()
		WHERE id = $1 AND status = $4 AND assigned_to IS NOT NULL
	`, id, models.TaskStatusCompleted, completedAt, models.TaskStatusSubmitted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetRejected records rejection feedback on a submitted task.
func (r *TaskRepo) SetRejected(ctx context.Context, id uuid.UUID, feedback string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, feedback = $3, updated_at = now()
		WHERE id = $1 AND status = $4 AND assigned_to IS NOT NULL
	`, id, models.TaskStatusRejected, feedback, models.TaskStatusSubmitted)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	return err
}
