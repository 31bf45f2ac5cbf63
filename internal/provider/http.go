package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/autodev/internal/config"
	"github.com/felixgeelhaar/autodev/internal/errors"
	"github.com/felixgeelhaar/autodev/internal/log"
)

// Role names for the two collaborators.
const (
	RolePlanner  = "planner"
	RoleExecutor = "executor"
)

// HTTPClient talks to an OpenAI-compatible /chat/completions endpoint.
type HTTPClient struct {
	role   string
	cfg    config.RoleConfig
	client *http.Client
	logger *log.Logger
}

// chat completion wire structures
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewHTTPClient creates a client for one collaborator role. The per-request
// timeout comes from the role configuration.
func NewHTTPClient(role string, cfg config.RoleConfig, logger *log.Logger) *HTTPClient {
	return &HTTPClient{
		role:   role,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("role", role, "server", cfg.Server),
	}
}

// Role implements Client.
func (c *HTTPClient) Role() string {
	return c.role
}

// Complete implements Client. It sends a non-streaming completion request
// and returns the assistant content of the first choice.
func (c *HTTPClient) Complete(ctx context.Context, messages []Message) (string, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/chat/completions"), bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending completion request",
		"max_tokens", c.cfg.MaxTokens,
		"messages", len(messages))

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.Wrap(c.timeoutCode(), fmt.Sprintf("%s did not answer within %s", c.role, c.cfg.Timeout), err).
				WithSuggestion("The model may be too slow or overloaded; raise the role timeout")
		}
		return "", c.unavailableError(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", c.unavailableError(err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var errResp chatResponse
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr == nil && errResp.Error != nil {
			return "", c.unavailableError(fmt.Errorf("server error: %s", errResp.Error.Message))
		}
		return "", c.unavailableError(fmt.Errorf("http %d: %s", httpResp.StatusCode, truncate(string(respBody), 200)))
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", c.unavailableError(fmt.Errorf("invalid response body: %w", err))
	}

	if resp.Usage.TotalTokens > 0 {
		c.logger.Debug("token usage",
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens,
			"total_tokens", resp.Usage.TotalTokens)
	}

	if len(resp.Choices) == 0 {
		return "", c.emptyError()
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "length" {
		c.logger.Warn("completion truncated by max_tokens limit",
			"max_tokens", c.cfg.MaxTokens)
	}

	content := choice.Message.Content
	if strings.TrimSpace(content) == "" {
		return "", c.emptyError()
	}

	return content, nil
}

// Health implements Client. Any HTTP response counts as reachable; only
// transport failures mean the collaborator is down.
func (c *HTTPClient) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/models"), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return c.unavailableError(err)
	}
	httpResp.Body.Close()

	return nil
}

func (c *HTTPClient) endpoint(path string) string {
	return strings.TrimSuffix(c.cfg.Server, "/") + path
}

func (c *HTTPClient) unavailableError(cause error) *errors.AgentError {
	if c.role == RolePlanner {
		return errors.NewPlannerUnavailableError(c.cfg.Server, cause)
	}
	return errors.NewExecutorUnavailableError(c.cfg.Server, cause)
}

func (c *HTTPClient) emptyError() *errors.AgentError {
	code := errors.ErrCodeExecutorEmpty
	if c.role == RolePlanner {
		code = errors.ErrCodePlannerEmpty
	}
	return errors.New(code, fmt.Sprintf("%s returned an empty completion", c.role))
}

func (c *HTTPClient) timeoutCode() errors.ErrorCode {
	if c.role == RolePlanner {
		return errors.ErrCodePlannerTimeout
	}
	return errors.ErrCodeExecutorTimeout
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
