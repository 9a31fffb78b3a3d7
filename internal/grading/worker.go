package grading

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/cehpoint/backend/internal/models"
	"github.com/cehpoint/backend/internal/verify"
)

// GradeSubmissionJobArgs is the queued request to grade a worker's demo-task
// submission.
type GradeSubmissionJobArgs struct {
	UserID          uuid.UUID `json:"user_id"`
	TaskDescription string    `json:"task_description"`
	Submission      string    `json:"submission"`
}

func (GradeSubmissionJobArgs) Kind() string { return "grade_demo_submission" }

// Grader scores a free-text submission. Implemented by the verify client.
type Grader interface {
	GradeSubmission(ctx context.Context, taskDescription, submission string) (*verify.Grade, error)
}

// GateStore raises the demo gate on a worker once a submission passes.
type GateStore interface {
	SetDemoTaskCompleted(ctx context.Context, id uuid.UUID) error
}

type GradeSubmissionWorker struct {
	river.WorkerDefaults[GradeSubmissionJobArgs]
	grader Grader
	users  GateStore
	log    *slog.Logger
}

// NewGradeSubmissionWorker returns the river worker. grader may be nil;
// grading then always falls back to acceptance.
func NewGradeSubmissionWorker(grader Grader, users GateStore, log *slog.Logger) *GradeSubmissionWorker {
	if log == nil {
		log = slog.Default()
	}
	return &GradeSubmissionWorker{grader: grader, users: users, log: log}
}

func (w *GradeSubmissionWorker) Work(ctx context.Context, job *river.Job[GradeSubmissionJobArgs]) error {
	args := job.Args

	grade := w.grade(ctx, args)
	w.log.Info("demo submission graded",
		"user_id", args.UserID, "score", grade.Score, "feedback", grade.Feedback)

	if float64(grade.Score) < models.PassingScore {
		return nil
	}
	if err := w.users.SetDemoTaskCompleted(ctx, args.UserID); err != nil {
		return fmt.Errorf("mark demo task completed: %w", err)
	}
	return nil
}

// grade calls the AI grader and degrades to acceptance when it is
// unavailable, so a worker is never blocked by a third-party outage.
func (w *GradeSubmissionWorker) grade(ctx context.Context, args GradeSubmissionJobArgs) *verify.Grade {
	fallback := &verify.Grade{
		Score:    int(models.PassingScore),
		Feedback: "Automatic review unavailable; submission accepted.",
	}
	if w.grader == nil {
		return fallback
	}
	grade, err := w.grader.GradeSubmission(ctx, args.TaskDescription, args.Submission)
	if err != nil {
		w.log.Warn("demo grading failed, accepting submission", "user_id", args.UserID, "error", err)
		return fallback
	}
	return grade
}
