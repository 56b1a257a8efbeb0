package llm

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Task identifies which pipeline stage a model call belongs to. Models are
// selected per task through an explicit task-to-model mapping.
type Task string

const (
	TaskClassify  Task = "classify"
	TaskSummarize Task = "summarize"
	TaskSpeech    Task = "speech"
)

const (
	// DefaultBaseURL targets the standard OpenAI API; any compatible
	// endpoint can be substituted via configuration.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultTimeout is the HTTP timeout for model calls.
	DefaultTimeout = 120 * time.Second

	// Reasoning models burn tokens on internal deliberation before
	// producing output, so the requested budget is scaled up.
	reasoningTokenMultiplier = 5
)

// Reasoning-model name prefixes. These models reject the temperature
// parameter and need a larger completion-token budget.
var reasoningModelPrefixes = []string{"o1", "o3", "gpt-5"}

// IsReasoningModel reports whether the model needs reasoning-style call
// parameters (no temperature, scaled token budget).
func IsReasoningModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range reasoningModelPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Config holds the model-endpoint settings for one pipeline run.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	TaskModels   map[Task]string
}

// Client talks to an OpenAI-compatible chat and speech API over JSON/HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a new model client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// ModelFor returns the model configured for a task, falling back to the
// default model when no task-specific override is set.
func (c *Client) ModelFor(task Task) string {
	return cmp.Or(c.cfg.TaskModels[task], c.cfg.DefaultModel)
}

// ChatRequest describes one chat-completion call.
type ChatRequest struct {
	Task        Task
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	Temperature         *float64      `json:"temperature,omitempty"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Chat issues one chat completion and returns the raw text content of the
// first choice. Reasoning models omit temperature and get a scaled token
// budget; standard models pass both through as given.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	model := c.ModelFor(req.Task)
	reasoning := IsReasoningModel(model)

	systemRole := "system"
	if reasoning {
		systemRole = "developer"
	}

	body := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: systemRole, Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
	}

	if !reasoning {
		temperature := req.Temperature
		body.Temperature = &temperature
	}

	if req.MaxTokens > 0 {
		if reasoning {
			body.MaxCompletionTokens = req.MaxTokens * reasoningTokenMultiplier
		} else {
			body.MaxCompletionTokens = req.MaxTokens
		}
	}

	slog.Debug("Model call", "task", req.Task, "model", model, "reasoning", reasoning)

	data, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("model error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat response")
	}

	return parsed.Choices[0].Message.Content, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Speech synthesizes spoken audio (MP3 bytes) for the given text.
func (c *Client) Speech(ctx context.Context, input, voice string) ([]byte, error) {
	body := speechRequest{
		Model:          c.ModelFor(TaskSpeech),
		Input:          input,
		Voice:          voice,
		ResponseFormat: "mp3",
	}
	return c.post(ctx, "/audio/speech", body)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read model response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := string(data)
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		return nil, fmt.Errorf("model endpoint returned HTTP %d: %s", resp.StatusCode, snippet)
	}

	return data, nil
}
