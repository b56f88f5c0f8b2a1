package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"edudash-assessment-service/internal/domain"
)

// HTTPGateway submits attempts to the grading backend over REST. It is
// a stateless, retryable function of its inputs; the session state
// machine owns the exactly-once guarantee.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway builds a gateway against the backend base URL. A nil
// client gets a sane default timeout.
func NewHTTPGateway(baseURL string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type submitBody struct {
	AttemptID string               `json:"attemptId"`
	StudentID string               `json:"studentId"`
	QuizID    string               `json:"quizId"`
	Answers   []domain.AnswerEntry `json:"answers"`
}

type resultBody struct {
	AttemptID        string                    `json:"attemptId"`
	Score            int                       `json:"score"`
	TotalMarks       int                       `json:"totalMarks"`
	Percentage       float64                   `json:"percentage"`
	Status           string                    `json:"status"` // "pass" | "fail"
	QuestionFeedback []domain.QuestionFeedback `json:"questionFeedback"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Submit posts the frozen answer set. A "quiz already submitted"
// rejection is expected, not exceptional: double submission happens
// whenever an auto-submit races a stale manual click, so the existing
// authoritative result is fetched and returned instead of an error.
func (g *HTTPGateway) Submit(ctx context.Context, req domain.AttemptRequest) (domain.SessionResult, error) {
	payload, err := json.Marshal(submitBody{
		AttemptID: req.AttemptID,
		StudentID: req.StudentID,
		QuizID:    req.QuizID,
		Answers:   req.Answers,
	})
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("marshal attempt: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/quizzes/submit", bytes.NewReader(payload))
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return g.FetchResult(ctx, req.QuizID, req.AttemptID)
	}
	if resp.StatusCode != http.StatusOK {
		var body errorBody
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if strings.Contains(strings.ToLower(body.Error), "already submitted") {
			return g.FetchResult(ctx, req.QuizID, req.AttemptID)
		}
		return domain.SessionResult{}, fmt.Errorf("submit attempt: backend returned %d: %s", resp.StatusCode, body.Error)
	}

	var body resultBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.SessionResult{}, fmt.Errorf("decode result: %w", err)
	}
	return toResult(req.QuizID, req.StudentID, req.AttemptID, body), nil
}

// FetchResult retrieves the persisted authoritative result for an
// attempt, including any teacher feedback attached since submission.
func (g *HTTPGateway) FetchResult(ctx context.Context, quizID, attemptID string) (domain.SessionResult, error) {
	url := fmt.Sprintf("%s/quizzes/%s/attempts/%s", g.baseURL, quizID, attemptID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.SessionResult{}, domain.ErrAttemptNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return domain.SessionResult{}, fmt.Errorf("fetch attempt: backend returned %d", resp.StatusCode)
	}

	var body resultBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.SessionResult{}, fmt.Errorf("decode result: %w", err)
	}
	return toResult(quizID, "", attemptID, body), nil
}

func toResult(quizID, studentID, attemptID string, body resultBody) domain.SessionResult {
	if body.AttemptID != "" {
		attemptID = body.AttemptID
	}
	return domain.SessionResult{
		AttemptID:   attemptID,
		QuizID:      quizID,
		StudentID:   studentID,
		EarnedMarks: body.Score,
		TotalMarks:  body.TotalMarks,
		Percentage:  body.Percentage,
		Passed:      body.Status == "pass",
		Feedback:    body.QuestionFeedback,
	}
}
