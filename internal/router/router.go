package router

import (
	"net/http"

	"github.com/cehpoint/backend/internal/auth"
	"github.com/cehpoint/backend/internal/dashboard"
	"github.com/cehpoint/backend/internal/middleware"
	"github.com/cehpoint/backend/internal/models"
)

// New returns an http.Handler serving the /api/v1 auth, dashboard, and admin
// routes. authn is the JWT middleware; role checks layer on top of it.
func New(authHandler *auth.Handler, dashHandler *dashboard.Handler, authn func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	adminOnly := func(h http.HandlerFunc) http.Handler {
		return authn(middleware.RequireRole(models.RoleAdmin)(h))
	}
	workerOnly := func(h http.HandlerFunc) http.Handler {
		return authn(middleware.RequireRole(models.RoleWorker)(h))
	}

	mux.HandleFunc("GET "+base+"/auth/quiz", authHandler.Quiz)
	mux.HandleFunc("POST "+base+"/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)

	mux.Handle("GET "+base+"/dashboard", workerOnly(dashHandler.WorkerDashboard))
	mux.Handle("GET "+base+"/payments", workerOnly(dashHandler.ListPayments))

	mux.Handle("GET "+base+"/admin/dashboard", adminOnly(dashHandler.AdminDashboard))
	mux.Handle("GET "+base+"/admin/workers", adminOnly(dashHandler.ListWorkers))
	mux.Handle("POST "+base+"/admin/workers/{id}/approve", adminOnly(dashHandler.ApproveWorker))
	mux.Handle("POST "+base+"/admin/workers/{id}/suspend", adminOnly(dashHandler.SuspendWorker))
	mux.Handle("POST "+base+"/admin/workers/{id}/terminate", adminOnly(dashHandler.TerminateWorker))

	return mux
}
