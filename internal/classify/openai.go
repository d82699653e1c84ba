package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// classifierPrompt constrains the model to the candidate list. The model
// never sees an open question: it picks an offered id or abstains.
const classifierPrompt = `You resolve a user's chat input against a fixed candidate list.
Reply with ONLY a JSON object, no prose:
{"decision":"select","choice_id":"<id>","confidence":<0..1>}
or {"decision":"ask_clarify","confidence":<0..1>}
or {"decision":"abstain","confidence":<0..1>}
Rules:
- choice_id MUST be one of the offered ids. Never invent ids.
- If the input does not clearly refer to exactly one candidate, abstain.
- For task "return_intent" the candidates are the only two possible readings.`

// HTTPConfig configures the OpenAI-compatible backend.
type HTTPConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	// Timeout is the HTTP client ceiling; the Guard's per-call context
	// deadline is normally shorter.
	Timeout time.Duration
}

// HTTPClassifier talks to an OpenAI-compatible chat-completions endpoint
// (OpenAI itself, Ollama, or any local proxy speaking the same dialect).
type HTTPClassifier struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPClassifier creates a backend for the given endpoint.
func NewHTTPClassifier(cfg HTTPConfig) *HTTPClassifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &HTTPClassifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Classify implements Classifier over HTTP.
func (c *HTTPClassifier) Classify(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: classifierPrompt},
			{Role: "user", Content: buildUserMessage(req)},
		},
		MaxTokens:   120,
		Temperature: 0,
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.Endpoint, "/")+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return Response{}, ErrTimeout
		}
		return Response{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return Response{}, fmt.Errorf("%w: decode: %v", ErrInvalidResponse, err)
	}
	if len(chat.Choices) == 0 {
		return Response{}, fmt.Errorf("%w: no choices", ErrInvalidResponse)
	}

	return parseVerdict(chat.Choices[0].Message.Content)
}

// buildUserMessage lays out the bounded choice space for the model.
func buildUserMessage(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "task: %s\n", req.Task)
	if req.Intent != "" {
		fmt.Fprintf(&b, "original intent: %s\n", req.Intent)
	}
	b.WriteString("candidates:\n")
	for _, c := range req.Candidates {
		fmt.Fprintf(&b, "- id=%s label=%q kind=%s\n", c.ID, c.Label, c.Kind)
	}
	fmt.Fprintf(&b, "input: %q\n", req.Input)
	return b.String()
}

// parseVerdict extracts the JSON verdict from the model's reply, tolerating
// code fences and surrounding prose.
func parseVerdict(content string) (Response, error) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return Response{}, fmt.Errorf("%w: no JSON object in reply", ErrInvalidResponse)
	}

	var resp Response
	if err := json.Unmarshal([]byte(content[start:end+1]), &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	switch resp.Decision {
	case DecisionSelect, DecisionAskClarify, DecisionAbstain:
	default:
		return Response{}, fmt.Errorf("%w: decision %q", ErrInvalidResponse, resp.Decision)
	}
	if resp.Decision == DecisionSelect && resp.ChoiceID == "" {
		return Response{}, fmt.Errorf("%w: select without choice_id", ErrInvalidResponse)
	}
	return resp, nil
}
