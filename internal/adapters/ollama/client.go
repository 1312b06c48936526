// Package ollama turns free-text listening requests into audio feature
// targets by asking a local Ollama model for a structured intent.
package ollama

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/ewilliams-labs/songmatch/internal/breaker"
	"github.com/ewilliams-labs/songmatch/internal/core/domain"
	"github.com/ewilliams-labs/songmatch/internal/core/ports"
	"github.com/ewilliams-labs/songmatch/internal/logging"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "deepseek-r1:8b"
)

const systemPrompt = "You are the SongMatch listening intent engine. Translate a listener's description of what they want to hear into a structured JSON 'IntentObject'.\n\n" +
	"Rules:\n" +
	"Features: vibe_constraints keys must be among acousticness, danceability, energy, instrumentalness, liveness, loudness, speechiness, tempo, valence.\n" +
	"Scaling: every value is on a 0.0 to 1.0 scale, including tempo (0 slow, 1 fast) and loudness (0 quiet, 1 loud).\n" +
	"Constraints: each constraint has an optional target, min or max, plus a weight of LOW, MEDIUM or HIGH.\n" +
	"Entities: extract specific artists or genres mentioned.\n" +
	"Output: return ONLY a valid JSON object with intent_type, entities, vibe_constraints and explanation. No conversational text.\n" +
	"Example: 'a sad acoustic set' -> { 'intent_type': 'DESCRIBE', 'vibe_constraints': { 'valence': {'target': 0.2, 'weight': 'HIGH'}, 'acousticness': {'min': 0.7, 'weight': 'MEDIUM'} } }"

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[domain.IntentObject]
}

var _ ports.IntentCompiler = (*Client)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	Seed        int     `json:"seed,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// NewClient builds a client; empty values fall back to a local server and
// the default model.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		cb:         breaker.New[domain.IntentObject](breaker.DefaultConfig("ollama")),
	}
}

// AnalyzeIntent asks the model to interpret message. Transport failures and
// an open breaker surface as ErrIntentUnavailable.
func (c *Client) AnalyzeIntent(ctx context.Context, message string) (domain.IntentObject, error) {
	intent, err := c.cb.Execute(func() (domain.IntentObject, error) {
		return c.chat(ctx, message)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.IntentObject{}, fmt.Errorf("ollama: %w: %v", domain.ErrIntentUnavailable, err)
		}
		return domain.IntentObject{}, err
	}
	return intent, nil
}

func (c *Client) chat(ctx context.Context, message string) (domain.IntentObject, error) {
	payload := chatRequest{
		Model:  c.model,
		Stream: false,
		Format: "json",
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		// deterministic output so identical descriptions hit the result cache
		Options: chatOptions{Temperature: 0, Seed: 42},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.IntentObject{}, fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return domain.IntentObject{}, fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.IntentObject{}, fmt.Errorf("ollama: %w: %v", domain.ErrIntentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.IntentObject{}, fmt.Errorf("ollama: unexpected status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.IntentObject{}, fmt.Errorf("ollama: decode response: %w", err)
	}
	if parsed.Error != "" {
		return domain.IntentObject{}, fmt.Errorf("ollama: %s", parsed.Error)
	}

	return decodeIntent(parsed.Message.Content)
}

// decodeIntent parses the model output and drops constraints on features
// the catalog does not carry.
func decodeIntent(raw string) (domain.IntentObject, error) {
	content := extractJSON(raw)
	if content == "" {
		return domain.IntentObject{}, fmt.Errorf("ollama: no JSON object in response")
	}

	var intent domain.IntentObject
	if err := json.Unmarshal([]byte(content), &intent); err != nil {
		return domain.IntentObject{}, fmt.Errorf("ollama: decode intent: %w", err)
	}
	for name := range intent.VibeConstraints {
		if !domain.IsFeature(name) {
			logging.Debug().Str("feature", name).Msg("ollama returned unknown feature, ignoring")
			delete(intent.VibeConstraints, name)
		}
	}
	return intent, nil
}

// extractJSON drops reasoning preambles such as <think> blocks and returns
// the outermost JSON object in s.
func extractJSON(s string) string {
	if i := strings.LastIndex(s, "</think>"); i != -1 {
		s = s[i+len("</think>"):]
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}
