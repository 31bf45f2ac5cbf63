// Package provider implements clients for the OpenAI-compatible completion
// servers the agent collaborates with.
package provider

import (
	"context"
)

// Message is a single chat message in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Role constants for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// System returns a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Client is a completion collaborator. The orchestrator holds two of these:
// one configured as the planner, one as the executor.
type Client interface {
	// Complete sends the messages and returns the assistant's content.
	// An empty completion is an error, never an empty string.
	Complete(ctx context.Context, messages []Message) (string, error)

	// Health reports whether the endpoint is reachable. It is called once
	// at startup so connection problems surface before any work is done.
	Health(ctx context.Context) error

	// Role identifies the client in logs and error messages.
	Role() string
}
