package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/cehpoint/backend/internal/models"
	"github.com/cehpoint/backend/internal/services"
	"github.com/cehpoint/backend/internal/verify"
)

// ErrDuplicateEmail is returned when signing up with an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrQualificationFailed is returned when the knowledge-check score is below
// the passing threshold. No user record is created; the caller may retry
// with a fresh quiz.
var ErrQualificationFailed = errors.New("knowledge check score too low")

// ErrInvalidCredentials is returned on a failed login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the user repository interface auth needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// QuestionSource generates knowledge-check questions. Implemented by the
// verify client; any failure degrades to the fixed fallback quiz.
type QuestionSource interface {
	GenerateQuestions(ctx context.Context, skills []string) ([]verify.Question, error)
}

// QuizQuestion is a question with the correct answer stripped, safe to send
// to an unauthenticated signup client.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// SignupInput carries the worker signup form plus the quiz answers.
type SignupInput struct {
	Email      string
	Password   string
	FullName   string
	Phone      string
	Skills     []string
	Experience string
	Timezone   string
	QuizToken  string
	Answers    []int
}

type Service interface {
	Quiz(ctx context.Context, skills []string) ([]QuizQuestion, string, error)
	RegisterWorker(ctx context.Context, in SignupInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

type service struct {
	users     UserStore
	questions QuestionSource
	secret    []byte
	log       *slog.Logger
}

// NewService returns the auth service. questions may be nil; the fixed
// fallback quiz is then used for every signup.
func NewService(users UserStore, questions QuestionSource, log *slog.Logger) *service {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "supersecretmvp"
	}
	if log == nil {
		log = slog.Default()
	}
	return &service{users: users, questions: questions, secret: []byte(secret), log: log}
}

var _ Service = (*service)(nil)

type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// quizClaims carries the generated questions, correct answers included,
// through the stateless signup flow. The token is signed, not encrypted: a
// client can decode the payload and read the answer key, but cannot alter it
// or reuse it past the expiry. The quiz gates effort, not secrecy.
type quizClaims struct {
	jwt.RegisteredClaims
	Questions []verify.Question `json:"questions"`
}

// Quiz generates a knowledge check for the given skills. It returns the
// redacted questions and a signed token holding the answer key.
func (s *service) Quiz(ctx context.Context, skills []string) ([]QuizQuestion, string, error) {
	var questions []verify.Question
	if s.questions != nil {
		generated, err := s.questions.GenerateQuestions(ctx, skills)
		if err != nil {
			s.log.Warn("question generation failed, using fallback quiz", "error", err)
		} else {
			questions = generated
		}
	}
	if questions == nil {
		questions = verify.FallbackQuestions()
	}

	c := quizClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Questions: questions,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign quiz token: %w", err)
	}

	redacted := make([]QuizQuestion, len(questions))
	for i, q := range questions {
		redacted[i] = QuizQuestion{Question: q.Question, Options: q.Options}
	}
	return redacted, token, nil
}

// RegisterWorker scores the quiz and, at a passing score, creates a pending
// worker account. Below the threshold nothing is written.
func (s *service) RegisterWorker(ctx context.Context, in SignupInput) (*models.User, error) {
	switch {
	case in.Email == "" || in.Password == "" || in.FullName == "" || in.Phone == "":
		return nil, fmt.Errorf("%w: missing required profile fields", services.ErrValidation)
	case len(in.Skills) == 0 || in.Experience == "" || in.Timezone == "":
		return nil, fmt.Errorf("%w: missing skills, experience, or timezone", services.ErrValidation)
	case in.QuizToken == "":
		return nil, fmt.Errorf("%w: quiz token is required", services.ErrValidation)
	}

	questions, err := s.parseQuizToken(in.QuizToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid quiz token", services.ErrValidation)
	}

	score := verify.Score(questions, in.Answers)
	if score < models.PassingScore {
		return nil, fmt.Errorf("%w: scored %.1f, need %.0f", ErrQualificationFailed, score, models.PassingScore)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:             uuid.New(),
		Email:          in.Email,
		PasswordHash:   string(hash),
		Role:           models.RoleWorker,
		FullName:       in.FullName,
		Phone:          in.Phone,
		Skills:         in.Skills,
		Experience:     in.Experience,
		Timezone:       in.Timezone,
		AccountStatus:  models.AccountStatusPending,
		KnowledgeScore: score,
	}
	if err := s.users.Create(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(user.ID, user.Role)
}

func (s *service) issueToken(userID uuid.UUID, role string) (string, error) {
	c := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error) {
	tok, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*sessionClaims)
	if !ok || !tok.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}

func (s *service) parseQuizToken(token string) ([]verify.Question, error) {
	tok, err := jwt.ParseWithClaims(token, &quizClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*quizClaims)
	if !ok || !tok.Valid {
		return nil, errors.New("invalid quiz token")
	}
	return c.Questions, nil
}
