package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cehpoint/backend/internal/grading"
	"github.com/cehpoint/backend/internal/middleware"
	"github.com/cehpoint/backend/internal/models"
	"github.com/cehpoint/backend/internal/services"
)

// LifecycleService is the subset of the lifecycle engine the handler needs.
type LifecycleService interface {
	CreateTask(ctx context.Context, admin *models.User, in services.CreateTaskInput) (*models.Task, error)
	AcceptTask(ctx context.Context, worker *models.User, taskID uuid.UUID) (*models.Task, error)
	SubmitTask(ctx context.Context, worker *models.User, taskID uuid.UUID, submissionURL string) (*models.Task, error)
	ApproveTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
	RejectTask(ctx context.Context, taskID uuid.UUID, feedback string) (*models.Task, error)
	Withdraw(ctx context.Context, workerID uuid.UUID, amountCents int64) (*models.Payment, error)
}

// TaskReader serves the read-only task endpoints.
type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context) ([]*models.Task, error)
	ListByAssignee(ctx context.Context, workerID uuid.UUID) ([]*models.Task, error)
}

// CandidateFinder suggests workers for a task.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, task *models.Task) ([]*models.User, error)
}

// GradeJobInserter enqueues a demo-submission grading job.
type GradeJobInserter func(ctx context.Context, args grading.GradeSubmissionJobArgs) error

// TaskHandler serves the /v1 task lifecycle endpoints.
type TaskHandler struct {
	Lifecycle      LifecycleService
	Tasks          TaskReader
	Matcher        CandidateFinder
	InsertGradeJob GradeJobInserter
	Logger         *slog.Logger
}

// --- POST /v1/tasks (admin) ---

type createTaskRequest struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	Skills            []string `json:"skills"`
	WeeklyPayoutCents int64    `json:"weekly_payout_cents"`
	Deadline          string   `json:"deadline"`
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	admin := middleware.UserFromCtx(r.Context())
	if admin == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	var deadline time.Time
	if req.Deadline != "" {
		var err error
		deadline, err = time.Parse(time.DateOnly, req.Deadline)
		if err != nil {
			http.Error(w, `{"error":"deadline must be YYYY-MM-DD"}`, http.StatusBadRequest)
			return
		}
	}

	task, err := h.Lifecycle.CreateTask(r.Context(), admin, services.CreateTaskInput{
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		Skills:            req.Skills,
		WeeklyPayoutCents: req.WeeklyPayoutCents,
		Deadline:          deadline,
	})
	if err != nil {
		h.writeError(w, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// --- GET /v1/tasks ---

// ListTasks returns every task for admins and the caller's assigned tasks
// for workers.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var (
		tasks []*models.Task
		err   error
	)
	if user.Role == models.RoleAdmin {
		tasks, err = h.Tasks.List(r.Context())
	} else {
		tasks, err = h.Tasks.ListByAssignee(r.Context(), user.ID)
	}
	if err != nil {
		h.Logger.Error("list tasks", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// --- GET /v1/tasks/{id} ---

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromPath(r)
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Tasks.GetByID(r.Context(), taskID)
	if err != nil {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /v1/tasks/{id}/accept (worker) ---

func (h *TaskHandler) AcceptTask(w http.ResponseWriter, r *http.Request) {
	worker := middleware.UserFromCtx(r.Context())
	taskID, ok := taskIDFromPath(r)
	if worker == nil || !ok {
		http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Lifecycle.AcceptTask(r.Context(), worker, taskID)
	if err != nil {
		h.writeError(w, "accept task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /v1/tasks/{id}/submit (worker) ---

type submitTaskRequest struct {
	SubmissionURL string `json:"submission_url"`
}

func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	worker := middleware.UserFromCtx(r.Context())
	taskID, ok := taskIDFromPath(r)
	if worker == nil || !ok {
		http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
		return
	}
	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Lifecycle.SubmitTask(r.Context(), worker, taskID, req.SubmissionURL)
	if err != nil {
		h.writeError(w, "submit task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /v1/tasks/{id}/approve (admin) ---

func (h *TaskHandler) ApproveTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromPath(r)
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Lifecycle.ApproveTask(r.Context(), taskID)
	if err != nil {
		h.writeError(w, "approve task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- POST /v1/tasks/{id}/reject (admin) ---

type rejectTaskRequest struct {
	Feedback string `json:"feedback"`
}

func (h *TaskHandler) RejectTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromPath(r)
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	var req rejectTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Lifecycle.RejectTask(r.Context(), taskID, req.Feedback)
	if err != nil {
		h.writeError(w, "reject task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- GET /v1/tasks/{id}/matches (admin) ---

func (h *TaskHandler) MatchWorkers(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDFromPath(r)
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	task, err := h.Tasks.GetByID(r.Context(), taskID)
	if err != nil {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}
	candidates, err := h.Matcher.FindCandidates(r.Context(), task)
	if err != nil {
		h.Logger.Error("find candidates", "task_id", taskID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if candidates == nil {
		candidates = []*models.User{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

// --- POST /v1/withdrawals (worker) ---

type withdrawRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

func (h *TaskHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	worker := middleware.UserFromCtx(r.Context())
	if worker == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	payment, err := h.Lifecycle.Withdraw(r.Context(), worker.ID, req.AmountCents)
	if err != nil {
		h.writeError(w, "withdraw", err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

// --- POST /v1/demo-submissions (worker) ---

type demoSubmissionRequest struct {
	TaskDescription string `json:"task_description"`
	Submission      string `json:"submission"`
}

// SubmitDemo enqueues asynchronous grading of the worker's demo task. The
// demo gate flips once the grader (or its fallback) passes the submission.
func (h *TaskHandler) SubmitDemo(w http.ResponseWriter, r *http.Request) {
	worker := middleware.UserFromCtx(r.Context())
	if worker == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req demoSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Submission == "" {
		http.Error(w, `{"error":"submission is required"}`, http.StatusBadRequest)
		return
	}
	err := h.InsertGradeJob(r.Context(), grading.GradeSubmissionJobArgs{
		UserID:          worker.ID,
		TaskDescription: req.TaskDescription,
		Submission:      req.Submission,
	})
	if err != nil {
		h.Logger.Error("enqueue grade job", "user_id", worker.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "grading"})
}

// --- helpers ---

func (h *TaskHandler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrInsufficientFunds):
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "insufficient funds"})
	case errors.Is(err, services.ErrUnverifiedAccount):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "payout account not verified"})
	default:
		h.Logger.Error(op, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func taskIDFromPath(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
