package main

import (
	"net/http"

	"github.com/cehpoint/backend/internal/handlers"
	"github.com/cehpoint/backend/internal/middleware"
	"github.com/cehpoint/backend/internal/models"
)

// RegisterV1Routes adds the /v1 task lifecycle endpoints to the given mux.
// Middleware chain: JWTAuth -> role check -> (active-account check on
// worker mutations) -> handler.
func RegisterV1Routes(mux *http.ServeMux, th *handlers.TaskHandler, authn func(http.Handler) http.Handler) {
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return authn(middleware.RequireRole(models.RoleAdmin)(h))
	}
	workerOnly := func(h http.HandlerFunc) http.Handler {
		return authn(middleware.RequireRole(models.RoleWorker)(h))
	}
	activeWorker := func(h http.HandlerFunc) http.Handler {
		return authn(middleware.RequireRole(models.RoleWorker)(middleware.RequireActiveWorker(h)))
	}

	mux.Handle("POST /v1/tasks", adminOnly(th.CreateTask))
	mux.Handle("GET /v1/tasks", authn(http.HandlerFunc(th.ListTasks)))
	mux.Handle("GET /v1/tasks/{id}", authn(http.HandlerFunc(th.GetTask)))

	mux.Handle("POST /v1/tasks/{id}/accept", activeWorker(th.AcceptTask))
	mux.Handle("POST /v1/tasks/{id}/submit", activeWorker(th.SubmitTask))
	mux.Handle("POST /v1/tasks/{id}/approve", adminOnly(th.ApproveTask))
	mux.Handle("POST /v1/tasks/{id}/reject", adminOnly(th.RejectTask))
	mux.Handle("GET /v1/tasks/{id}/matches", adminOnly(th.MatchWorkers))

	mux.Handle("POST /v1/withdrawals", activeWorker(th.Withdraw))

	// Demo submissions are open to pending workers: the demo gate is part of
	// onboarding, before the account is approved.
	mux.Handle("POST /v1/demo-submissions", workerOnly(th.SubmitDemo))
}
