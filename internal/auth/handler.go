package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cehpoint/backend/internal/services"
)

// Request/response structs use snake_case JSON.

type SignupRequest struct {
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	FullName   string   `json:"full_name"`
	Phone      string   `json:"phone"`
	Skills     []string `json:"skills"`
	Experience string   `json:"experience"`
	Timezone   string   `json:"timezone"`
	QuizToken  string   `json:"quiz_token"`
	Answers    []int    `json:"answers"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type QuizResponse struct {
	Questions []QuizQuestion `json:"questions"`
	QuizToken string         `json:"quiz_token"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// Quiz serves GET /api/v1/auth/quiz?skills=a,b,c. Public, pre-signup.
func (h *Handler) Quiz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var skills []string
	for _, s := range strings.Split(r.URL.Query().Get("skills"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	questions, token, err := h.svc.Quiz(r.Context(), skills)
	if err != nil {
		h.log.Error("quiz generation failed", "error", err)
		http.Error(w, "quiz generation failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, QuizResponse{Questions: questions, QuizToken: token})
}

// Signup serves POST /api/v1/auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	user, err := h.svc.RegisterWorker(r.Context(), SignupInput{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		Phone:      req.Phone,
		Skills:     req.Skills,
		Experience: req.Experience,
		Timezone:   req.Timezone,
		QuizToken:  req.QuizToken,
		Answers:    req.Answers,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrQualificationFailed):
			http.Error(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, ErrDuplicateEmail):
			http.Error(w, "email already registered", http.StatusConflict)
		default:
			h.log.Error("signup failed", "error", err)
			http.Error(w, "signup failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login serves POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "missing email or password", http.StatusBadRequest)
		return
	}
	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.log.Error("login failed", "error", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
