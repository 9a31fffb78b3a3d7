package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/cehpoint/backend/internal/grading"
	"github.com/cehpoint/backend/internal/middleware"
	"github.com/cehpoint/backend/internal/models"
	"github.com/cehpoint/backend/internal/services"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// --- LifecycleService stub: records calls, returns canned results ---

type stubLifecycle struct {
	task    *models.Task
	payment *models.Payment
	err     error

	createCalled   bool
	acceptCalled   bool
	submitCalled   bool
	approveCalled  bool
	rejectCalled   bool
	withdrawCalled bool
	withdrawAmount int64
	feedback       string
	submissionURL  string
}

func (s *stubLifecycle) CreateTask(_ context.Context, _ *models.User, _ services.CreateTaskInput) (*models.Task, error) {
	s.createCalled = true
	return s.task, s.err
}

func (s *stubLifecycle) AcceptTask(_ context.Context, _ *models.User, _ uuid.UUID) (*models.Task, error) {
	s.acceptCalled = true
	return s.task, s.err
}

func (s *stubLifecycle) SubmitTask(_ context.Context, _ *models.User, _ uuid.UUID, submissionURL string) (*models.Task, error) {
	s.submitCalled = true
	s.submissionURL = submissionURL
	return s.task, s.err
}

func (s *stubLifecycle) ApproveTask(_ context.Context, _ uuid.UUID) (*models.Task, error) {
	s.approveCalled = true
	return s.task, s.err
}

func (s *stubLifecycle) RejectTask(_ context.Context, _ uuid.UUID, feedback string) (*models.Task, error) {
	s.rejectCalled = true
	s.feedback = feedback
	return s.task, s.err
}

func (s *stubLifecycle) Withdraw(_ context.Context, _ uuid.UUID, amountCents int64) (*models.Payment, error) {
	s.withdrawCalled = true
	s.withdrawAmount = amountCents
	return s.payment, s.err
}

// --- TaskReader stub ---

type stubTaskReader struct {
	tasks map[uuid.UUID]*models.Task
}

func newStubTaskReader() *stubTaskReader {
	return &stubTaskReader{tasks: make(map[uuid.UUID]*models.Task)}
}

func (s *stubTaskReader) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return t, nil
}

func (s *stubTaskReader) List(_ context.Context) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (s *stubTaskReader) ListByAssignee(_ context.Context, workerID uuid.UUID) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range s.tasks {
		if t.AssignedTo != nil && *t.AssignedTo == workerID {
			out = append(out, t)
		}
	}
	return out, nil
}

// --- CandidateFinder stub ---

type stubMatcher struct {
	candidates []*models.User
}

func (s *stubMatcher) FindCandidates(context.Context, *models.Task) ([]*models.User, error) {
	return s.candidates, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestHandler() (*TaskHandler, *stubLifecycle, *stubTaskReader) {
	lc := &stubLifecycle{}
	tr := newStubTaskReader()
	h := &TaskHandler{
		Lifecycle: lc,
		Tasks:     tr,
		Matcher:   &stubMatcher{},
		InsertGradeJob: func(context.Context, grading.GradeSubmissionJobArgs) error {
			return nil
		},
		Logger: slog.Default(),
	}
	return h, lc, tr
}

func asUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), u))
}

func testAdmin() *models.User {
	return &models.User{ID: uuid.New(), Role: models.RoleAdmin, AccountStatus: models.AccountStatusActive}
}

func testWorker() *models.User {
	return &models.User{
		ID:                uuid.New(),
		Role:              models.RoleWorker,
		AccountStatus:     models.AccountStatusActive,
		Skills:            []string{"design"},
		DemoTaskCompleted: true,
	}
}

// =====================================================================
// POST /v1/tasks
// =====================================================================

func TestCreateTask_Valid(t *testing.T) {
	h, lc, _ := newTestHandler()
	lc.task = &models.Task{ID: uuid.New(), Status: models.TaskStatusAvailable}

	body := `{
		"title": "Logo Design",
		"description": "Design a logo",
		"category": "design",
		"skills": ["design"],
		"weekly_payout_cents": 50000,
		"deadline": "2026-09-15"
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(body))
	req = asUser(req, testAdmin())
	rec := httptest.NewRecorder()

	h.CreateTask(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !lc.createCalled {
		t.Error("expected CreateTask to be called")
	}
}

func TestCreateTask_BadDeadline(t *testing.T) {
	h, lc, _ := newTestHandler()

	body := `{"title":"Logo Design","deadline":"next tuesday"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(body))
	req = asUser(req, testAdmin())
	rec := httptest.NewRecorder()

	h.CreateTask(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if lc.createCalled {
		t.Error("CreateTask should not be called for a malformed deadline")
	}
}

func TestCreateTask_ValidationError(t *testing.T) {
	h, lc, _ := newTestHandler()
	lc.err = fmt.Errorf("%w: title is required", services.ErrValidation)

	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(`{}`))
	req = asUser(req, testAdmin())
	rec := httptest.NewRecorder()

	h.CreateTask(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

// =====================================================================
// GET /v1/tasks
// =====================================================================

func TestListTasks_WorkerSeesOwnOnly(t *testing.T) {
	h, _, tr := newTestHandler()
	worker := testWorker()

	mine := &models.Task{ID: uuid.New(), AssignedTo: &worker.ID, Status: models.TaskStatusInProgress}
	other := uuid.New()
	tr.tasks[mine.ID] = mine
	tr.tasks[uuid.New()] = &models.Task{ID: uuid.New(), AssignedTo: &other}

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req = asUser(req, worker)
	rec := httptest.NewRecorder()

	h.ListTasks(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var tasks []*models.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != mine.ID {
		t.Errorf("worker should see exactly their assigned task, got %d tasks", len(tasks))
	}
}

func TestListTasks_AdminSeesAll(t *testing.T) {
	h, _, tr := newTestHandler()
	tr.tasks[uuid.New()] = &models.Task{ID: uuid.New()}
	tr.tasks[uuid.New()] = &models.Task{ID: uuid.New()}

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req = asUser(req, testAdmin())
	rec := httptest.NewRecorder()

	h.ListTasks(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var tasks []*models.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("admin tasks: got %d, want 2", len(tasks))
	}
}

// =====================================================================
// POST /v1/tasks/{id}/accept
// =====================================================================

func TestAcceptTask(t *testing.T) {
	h, lc, _ := newTestHandler()
	taskID := uuid.New()
	lc.task = &models.Task{ID: taskID, Status: models.TaskStatusInProgress}

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/tasks/%s/accept", taskID), nil)
	req.SetPathValue("id", taskID.String())
	req = asUser(req, testWorker())
	rec := httptest.NewRecorder()

	h.AcceptTask(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !lc.acceptCalled {
		t.Error("expected AcceptTask to be called")
	}
}

func TestAcceptTask_Conflict(t *testing.T) {
	h, lc, _ := newTestHandler()
	taskID := uuid.New()
	lc.err = fmt.Errorf("%w: task is no longer available", services.ErrInvalidState)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/tasks/%s/accept", taskID), nil)
	req.SetPathValue("id", taskID.String())
	req = asUser(req, testWorker())
	rec := httptest.NewRecorder()

	h.AcceptTask(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAcceptTask_BadID(t *testing.T) {
	h, lc, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/tasks/not-a-uuid/accept", nil)
	req.SetPathValue("id", "not-a-uuid")
	req = asUser(req, testWorker())
	rec := httptest.NewRecorder()

	h.AcceptTask(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if lc.acceptCalled {
		t.Error("AcceptTask should not be called for a malformed id")
	}
}

// =====================================================================
// POST /v1/tasks/{id}/submit and review
// =====================================================================

func TestSubmitTask(t *testing.T) {
	h, lc, _ := newTestHandler()
	taskID := uuid.New()
	lc.task = &models.Task{ID: taskID, Status: models.TaskStatusSubmitted}

	body := `{"submission_url":"https://example.com/logo.png"}`
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/tasks/%s/submit", taskID), strings.NewReader(body))
	req.SetPathValue("id", taskID.String())
	req = asUser(req, testWorker())
	rec := httptest.NewRecorder()

	h.SubmitTask(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if lc.submissionURL != "https://example.com/logo.png" {
		t.Errorf("submission URL: got %q", lc.submissionURL)
	}
}

func TestRejectTask_PassesFeedback(t *testing.T) {
	h, lc, _ := newTestHandler()
	taskID := uuid.New()
	lc.task = &models.Task{ID: taskID, Status: models.TaskStatusRejected}

	body := `{"feedback":"logo is blurry"}`
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/tasks/%s/reject", taskID), strings.NewReader(body))
	req.SetPathValue("id", taskID.String())
	req = asUser(req, testAdmin())
	rec := httptest.NewRecorder()

	h.RejectTask(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if lc.feedback != "logo is blurry" {
		t.Errorf("feedback: got %q", lc.feedback)
	}
}

func TestApproveTask_NoAssigneeConflict(t *testing.T) {
	h, lc, _ := newTestHandler()
	taskID := uuid.New()
	lc.err = fmt.Errorf("%w: task has no assigned worker", services.ErrInvalidState)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/tasks/%s/approve", taskID), nil)
	req.SetPathValue("id", taskID.String())
	req = asUser(req, testAdmin())
	rec := httptest.NewRecorder()

	h.ApproveTask(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

// =====================================================================
// POST /v1/withdrawals
// =====================================================================

func TestWithdraw(t *testing.T) {
	h, lc, _ := newTestHandler()
	worker := testWorker()
	lc.payment = &models.Payment{
		ID:          uuid.New(),
		UserID:      worker.ID,
		AmountCents: 20000,
		Type:        models.PaymentTypeWithdrawal,
		Status:      models.PaymentStatusPending,
	}

	body := `{"amount_cents":20000}`
	req := httptest.NewRequest(http.MethodPost, "/v1/withdrawals", strings.NewReader(body))
	req = asUser(req, worker)
	rec := httptest.NewRecorder()

	h.Withdraw(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if lc.withdrawAmount != 20000 {
		t.Errorf("withdraw amount: got %d, want 20000", lc.withdrawAmount)
	}
}

func TestWithdraw_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"insufficient funds", services.ErrInsufficientFunds, http.StatusPaymentRequired},
		{"unverified account", services.ErrUnverifiedAccount, http.StatusForbidden},
		{"invalid amount", fmt.Errorf("%w: amount must be a positive number", services.ErrValidation), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, lc, _ := newTestHandler()
			lc.err = tc.err

			req := httptest.NewRequest(http.MethodPost, "/v1/withdrawals", strings.NewReader(`{"amount_cents":1}`))
			req = asUser(req, testWorker())
			rec := httptest.NewRecorder()

			h.Withdraw(rec, req)

			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

// =====================================================================
// POST /v1/demo-submissions
// =====================================================================

func TestSubmitDemo(t *testing.T) {
	h, _, _ := newTestHandler()
	var enqueued *grading.GradeSubmissionJobArgs
	h.InsertGradeJob = func(_ context.Context, args grading.GradeSubmissionJobArgs) error {
		enqueued = &args
		return nil
	}
	worker := testWorker()

	body := `{"task_description":"Build a landing page","submission":"https://example.com/demo"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/demo-submissions", strings.NewReader(body))
	req = asUser(req, worker)
	rec := httptest.NewRecorder()

	h.SubmitDemo(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if enqueued == nil {
		t.Fatal("expected a grading job to be enqueued")
	}
	if enqueued.UserID != worker.ID {
		t.Error("grading job should carry the caller's user id")
	}
}

func TestSubmitDemo_MissingSubmission(t *testing.T) {
	h, _, _ := newTestHandler()
	called := false
	h.InsertGradeJob = func(context.Context, grading.GradeSubmissionJobArgs) error {
		called = true
		return nil
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/demo-submissions", strings.NewReader(`{}`))
	req = asUser(req, testWorker())
	rec := httptest.NewRecorder()

	h.SubmitDemo(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if called {
		t.Error("no job should be enqueued for an empty submission")
	}
}

// =====================================================================
// GET /v1/tasks/{id}/matches
// =====================================================================

func TestMatchWorkers(t *testing.T) {
	h, _, tr := newTestHandler()
	task := &models.Task{ID: uuid.New(), Skills: []string{"design"}, Status: models.TaskStatusAvailable}
	tr.tasks[task.ID] = task
	h.Matcher = &stubMatcher{candidates: []*models.User{testWorker(), testWorker()}}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/tasks/%s/matches", task.ID), nil)
	req.SetPathValue("id", task.ID.String())
	req = asUser(req, testAdmin())
	rec := httptest.NewRecorder()

	h.MatchWorkers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var candidates []*models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &candidates); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(candidates) != 2 {
		t.Errorf("candidates: got %d, want 2", len(candidates))
	}
}

func TestMatchWorkers_UnknownTask(t *testing.T) {
	h, _, _ := newTestHandler()
	id := uuid.New()

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/tasks/%s/matches", id), nil)
	req.SetPathValue("id", id.String())
	req = asUser(req, testAdmin())
	rec := httptest.NewRecorder()

	h.MatchWorkers(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
