// Package codegen turns content instructions into file content by prompting
// the executor collaborator.
package codegen

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/autodev/internal/errors"
	"github.com/felixgeelhaar/autodev/internal/log"
	"github.com/felixgeelhaar/autodev/internal/provider"
)

const codeSystemPrompt = "You are a Senior Software Engineer. " +
	"Return ONLY raw executable code. No markdown fences, no explanations, no chatter. " +
	"The response is written to a file verbatim."

const testSystemPrompt = "You are an expert test engineer. " +
	"Return ONLY raw executable test code. No markdown fences, no explanations, no chatter. " +
	"The response is written to a file verbatim."

// Request describes one file the executor should produce. Existing carries
// the file's current content when the plan rewrites a file that already
// exists, so edits do not silently drop prior work.
type Request struct {
	Target      string
	Instruction string
	Task        string
	Existing    string
	IsTest      bool
}

// Generator asks the executor collaborator for file content.
type Generator struct {
	client provider.Client
	logger *log.Logger
}

// New creates a Generator over a completion client.
func New(client provider.Client, logger *log.Logger) *Generator {
	return &Generator{client: client, logger: logger}
}

// Generate produces the content for one file. The raw response is stripped of
// markdown fences; what remains must be plausible file content or the call
// fails with an empty-content error the retry loop can act on.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	system := codeSystemPrompt
	if req.IsTest {
		system = testSystemPrompt
	}

	response, err := g.client.Complete(ctx, []provider.Message{
		provider.System(system),
		provider.User(buildPrompt(req)),
	})
	if err != nil {
		return "", err
	}

	content := StripFences(response)
	if len(strings.TrimSpace(content)) < 10 {
		return "", errors.NewEmptyContentError(req.Target)
	}

	g.logger.Debug("content generated",
		"target", req.Target,
		"bytes", len(content),
		"test", req.IsTest)

	return content, nil
}

// buildPrompt assembles the user message for one generation call.
func buildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "FILE: %s\n\n", req.Target)
	fmt.Fprintf(&b, "INSTRUCTION:\n%s\n", req.Instruction)

	if req.Task != "" {
		fmt.Fprintf(&b, "\nPROJECT CONTEXT:\n%s\n", req.Task)
	}

	if req.Existing != "" {
		fmt.Fprintf(&b, "\nCURRENT CONTENT OF %s (produce the complete updated file, keep working parts):\n%s\n", req.Target, req.Existing)
	}

	b.WriteString("\nRespond with the complete file content and nothing else.")

	return b.String()
}

// StripFences removes a wrapping markdown code fence from model output: if
// the first line opens a fence it is dropped along with a closing fence on
// the last line. Fences inside the body are left alone since they can be
// legitimate file content.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
