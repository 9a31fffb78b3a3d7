package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/cehpoint/backend/internal/middleware"
	"github.com/cehpoint/backend/internal/models"
	"github.com/cehpoint/backend/internal/services"
)

// UserReader lists workers for the admin views.
type UserReader interface {
	ListWorkers(ctx context.Context) ([]*models.User, error)
}

// TaskReader supplies the task snapshots the projections run over.
type TaskReader interface {
	List(ctx context.Context) ([]*models.Task, error)
	ListByAssignee(ctx context.Context, workerID uuid.UUID) ([]*models.Task, error)
	ListAvailable(ctx context.Context) ([]*models.Task, error)
}

// PaymentReader supplies payment history.
type PaymentReader interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error)
}

// Handler serves read-only projections plus the admin worker-lifecycle
// endpoints. Projections never mutate state; everything is recomputed from
// the latest snapshot on each request.
type Handler struct {
	users    UserReader
	tasks    TaskReader
	payments PaymentReader
	accounts *services.WorkerAccounts
	log      *slog.Logger
}

func NewHandler(users UserReader, tasks TaskReader, payments PaymentReader, accounts *services.WorkerAccounts, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{users: users, tasks: tasks, payments: payments, accounts: accounts, log: log}
}

// --- GET /api/v1/admin/dashboard ---

type adminDashboardResponse struct {
	WorkersByStatus      map[string]int `json:"workers_by_status"`
	TasksByStatus        map[string]int `json:"tasks_by_status"`
	CompletedPayoutCents int64          `json:"completed_payout_cents"`
}

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	workers, err := h.users.ListWorkers(r.Context())
	if err != nil {
		h.internalError(w, "list workers", err)
		return
	}
	tasks, err := h.tasks.List(r.Context())
	if err != nil {
		h.internalError(w, "list tasks", err)
		return
	}

	resp := adminDashboardResponse{
		WorkersByStatus: map[string]int{},
		TasksByStatus:   map[string]int{},
	}
	for _, worker := range workers {
		resp.WorkersByStatus[worker.AccountStatus]++
	}
	for _, task := range tasks {
		resp.TasksByStatus[task.Status]++
		if task.Status == models.TaskStatusCompleted {
			resp.CompletedPayoutCents += task.WeeklyPayoutCents
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- GET /api/v1/dashboard (worker) ---

type workerDashboardResponse struct {
	BalanceCents        int64          `json:"balance_cents"`
	TasksByStatus       map[string]int `json:"tasks_by_status"`
	AvailableTasks      []*models.Task `json:"available_tasks"`
	TotalEarnedCents    int64          `json:"total_earned_cents"`
	TotalWithdrawnCents int64          `json:"total_withdrawn_cents"`
}

func (h *Handler) WorkerDashboard(w http.ResponseWriter, r *http.Request) {
	worker := middleware.UserFromCtx(r.Context())
	if worker == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	mine, err := h.tasks.ListByAssignee(r.Context(), worker.ID)
	if err != nil {
		h.internalError(w, "list assigned tasks", err)
		return
	}
	available, err := h.tasks.ListAvailable(r.Context())
	if err != nil {
		h.internalError(w, "list available tasks", err)
		return
	}
	payments, err := h.payments.ListByUserID(r.Context(), worker.ID)
	if err != nil {
		h.internalError(w, "list payments", err)
		return
	}

	resp := workerDashboardResponse{
		BalanceCents:   worker.BalanceCents,
		TasksByStatus:  map[string]int{},
		AvailableTasks: []*models.Task{},
	}
	for _, task := range mine {
		resp.TasksByStatus[task.Status]++
	}
	for _, task := range available {
		if worker.HasSkillOverlap(task.Skills) {
			resp.AvailableTasks = append(resp.AvailableTasks, task)
		}
	}
	for _, p := range payments {
		if p.Status != models.PaymentStatusCompleted {
			continue
		}
		switch p.Type {
		case models.PaymentTypeTaskPayment:
			resp.TotalEarnedCents += p.AmountCents
		case models.PaymentTypeWithdrawal:
			resp.TotalWithdrawnCents += p.AmountCents
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- GET /api/v1/payments (worker) ---

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	worker := middleware.UserFromCtx(r.Context())
	if worker == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	payments, err := h.payments.ListByUserID(r.Context(), worker.ID)
	if err != nil {
		h.internalError(w, "list payments", err)
		return
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

// --- GET /api/v1/admin/workers ---

func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.accounts.ListWorkers(r.Context())
	if err != nil {
		h.internalError(w, "list workers", err)
		return
	}
	if workers == nil {
		workers = []*models.User{}
	}
	writeJSON(w, http.StatusOK, workers)
}

// --- POST /api/v1/admin/workers/{id}/approve|suspend|terminate ---

func (h *Handler) ApproveWorker(w http.ResponseWriter, r *http.Request) {
	h.workerTransition(w, r, h.accounts.ApproveWorker)
}

func (h *Handler) SuspendWorker(w http.ResponseWriter, r *http.Request) {
	h.workerTransition(w, r, h.accounts.SuspendWorker)
}

func (h *Handler) TerminateWorker(w http.ResponseWriter, r *http.Request) {
	h.workerTransition(w, r, h.accounts.TerminateWorker)
}

func (h *Handler) workerTransition(w http.ResponseWriter, r *http.Request, apply func(context.Context, uuid.UUID) error) {
	workerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid worker id", http.StatusBadRequest)
		return
	}
	if err := apply(r.Context(), workerID); err != nil {
		if errors.Is(err, services.ErrInvalidState) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		h.internalError(w, "worker transition", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	h.log.Error(op, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
