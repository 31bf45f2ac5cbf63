package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/autodev/internal/config"
	"github.com/felixgeelhaar/autodev/internal/errors"
	"github.com/felixgeelhaar/autodev/internal/log"
)

func testRoleConfig(server string) config.RoleConfig {
	return config.RoleConfig{
		Server:      server,
		Model:       "local-model",
		Temperature: 0.2,
		MaxTokens:   512,
		Timeout:     5 * time.Second,
	}
}

func testLogger() *log.Logger {
	return log.New(log.Config{Level: log.LevelError, Format: log.FormatJSON, Output: io.Discard})
}

func completionBody(content, finishReason string) string {
	resp := map[string]any{
		"model": "local-model",
		"choices": []map[string]any{
			{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": finishReason,
			},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestCompleteSendsExpectedRequest(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(completionBody("hello", "stop")))
	}))
	defer server.Close()

	client := NewHTTPClient(RoleExecutor, testRoleConfig(server.URL), testLogger())
	content, err := client.Complete(context.Background(), []Message{
		System("you write code"),
		User("write hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	assert.Equal(t, "local-model", got.Model)
	assert.Equal(t, 0.2, got.Temperature)
	assert.Equal(t, 512, got.MaxTokens)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
}

func TestCompleteEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("   ", "stop")))
	}))
	defer server.Close()

	client := NewHTTPClient(RolePlanner, testRoleConfig(server.URL), testLogger())
	_, err := client.Complete(context.Background(), []Message{User("plan")})
	require.Error(t, err)

	var agentErr *errors.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, errors.ErrCodePlannerEmpty, agentErr.Code)
}

func TestCompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model":"local-model","choices":[]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(RoleExecutor, testRoleConfig(server.URL), testLogger())
	_, err := client.Complete(context.Background(), []Message{User("go")})
	require.Error(t, err)

	var agentErr *errors.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, errors.ErrCodeExecutorEmpty, agentErr.Code)
}

func TestCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"model not loaded","type":"server_error"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(RolePlanner, testRoleConfig(server.URL), testLogger())
	_, err := client.Complete(context.Background(), []Message{User("plan")})
	require.Error(t, err)

	var agentErr *errors.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, errors.ErrCodePlannerUnavailable, agentErr.Code)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestCompleteConnectionRefused(t *testing.T) {
	// Reserve a port and close it so nothing is listening.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewHTTPClient(RoleExecutor, testRoleConfig(url), testLogger())
	_, err := client.Complete(context.Background(), []Message{User("go")})
	require.Error(t, err)

	var agentErr *errors.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, errors.ErrCodeExecutorUnavailable, agentErr.Code)
}

func TestCompleteTruncatedStillReturnsContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("partial output", "length")))
	}))
	defer server.Close()

	client := NewHTTPClient(RoleExecutor, testRoleConfig(server.URL), testLogger())
	content, err := client.Complete(context.Background(), []Message{User("go")})
	require.NoError(t, err)
	assert.Equal(t, "partial output", content)
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPClient(RolePlanner, testRoleConfig(server.URL), testLogger())
	// Reachable endpoint is healthy even without a /models route.
	assert.NoError(t, client.Health(context.Background()))

	server.Close()
	err := client.Health(context.Background())
	require.Error(t, err)

	var agentErr *errors.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, errors.ErrCodePlannerUnavailable, agentErr.Code)
}
