// Package ai talks to the optional text-completion collaborator. It turns workouts into prompts, parses the answers
// and categorises failures so callers can fall back to the unenhanced result.
package ai

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNoAPIKey          = errors.New("no AI API key configured")
	ErrEmptyCompletion   = errors.New("empty completion")
	ErrMalformedResponse = errors.New("malformed AI response")
)

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one earlier turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a single text-completion call. The stretch advice and week overview calls send no history.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	History      []Message
}

// Completer produces a completion for a request.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// StripCodeFences removes a surrounding markdown code fence such as ```json ... ``` from s.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence together with its optional language tag.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
