package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cehpoint/backend/internal/models"
)

// ErrUnavailable is returned when the generative-AI service is unreachable
// or returned unparseable output. Callers fall back to static defaults and
// never surface it to end users.
var ErrUnavailable = errors.New("verification service unavailable")

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-1.5-flash"
	requestTimeout = 10 * time.Second
)

// Client calls the Gemini generateContent API for question generation,
// submission grading, and worker matching.
type Client struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient returns a Client with default model and timeout.
func NewClient(apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		APIKey:     apiKey,
		Model:      defaultModel,
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: requestTimeout},
		Logger:     logger,
	}
}

// GenerateQuestions asks for five multiple-choice questions covering the
// given skills.
func (c *Client) GenerateQuestions(ctx context.Context, skills []string) ([]Question, error) {
	prompt := fmt.Sprintf(`Generate 5 multiple-choice questions to test knowledge in %s.
Return a JSON array with this structure:
[
  {
    "question": "Question text",
    "options": ["Option A", "Option B", "Option C", "Option D"],
    "correctAnswer": 0
  }
]
Only return the JSON array, no other text.`, strings.Join(skills, ", "))

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var questions []Question
	if err := json.Unmarshal(extractJSON(text, '[', ']'), &questions); err != nil {
		return nil, fmt.Errorf("%w: parse questions: %v", ErrUnavailable, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: empty question set", ErrUnavailable)
	}
	return questions, nil
}

// GradeSubmission scores a free-text submission against the task description.
func (c *Client) GradeSubmission(ctx context.Context, taskDescription, submission string) (*Grade, error) {
	prompt := fmt.Sprintf(`Evaluate this demo task submission:
Task: %s
Submission: %s

Provide a score from 0-100 and detailed feedback.
Return a JSON object:
{
  "score": 85,
  "feedback": "Detailed feedback here"
}
Only return the JSON object, no other text.`, taskDescription, submission)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var grade Grade
	if err := json.Unmarshal(extractJSON(text, '{', '}'), &grade); err != nil {
		return nil, fmt.Errorf("%w: parse grade: %v", ErrUnavailable, err)
	}
	return &grade, nil
}

// MatchWorkers asks the model to rank suitable workers for a task and
// returns their IDs in rank order.
func (c *Client) MatchWorkers(ctx context.Context, task *models.Task, workers []*models.User) ([]uuid.UUID, error) {
	type workerSummary struct {
		ID         uuid.UUID `json:"id"`
		Skills     []string  `json:"skills"`
		Experience string    `json:"experience"`
	}
	summaries := make([]workerSummary, 0, len(workers))
	for _, w := range workers {
		summaries = append(summaries, workerSummary{ID: w.ID, Skills: w.Skills, Experience: w.Experience})
	}
	taskJSON, _ := json.Marshal(map[string]any{
		"title": task.Title, "description": task.Description,
		"category": task.Category, "skills": task.Skills,
	})
	workersJSON, _ := json.Marshal(summaries)
	prompt := fmt.Sprintf(`Match this task to suitable workers:
Task: %s
Workers: %s

Return a JSON array of worker IDs that are good matches:
["worker-id-1", "worker-id-2"]
Only return the JSON array, no other text.`, taskJSON, workersJSON)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var raw []string
	if err := json.Unmarshal(extractJSON(text, '[', ']'), &raw); err != nil {
		return nil, fmt.Errorf("%w: parse matches: %v", ErrUnavailable, err)
	}
	var ids []uuid.UUID
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// --- generateContent plumbing ---

type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("%w: no API key configured", ErrUnavailable)
	}

	var reqBody generateRequest
	reqBody.Contents = make([]struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}, 1)
	reqBody.Contents[0].Parts = make([]struct {
		Text string `json:"text"`
	}, 1)
	reqBody.Contents[0].Parts[0].Text = prompt

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.BaseURL, c.Model, c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// extractJSON returns the first balanced open..close span in text. The model
// is prompted to return bare JSON but often wraps it in prose or fences.
func extractJSON(text string, open, closing byte) []byte {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, closing)
	if start < 0 || end <= start {
		return []byte(text)
	}
	return []byte(text[start : end+1])
}
