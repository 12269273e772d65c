package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/myrjola/circuitgen/internal/ai"
	"github.com/myrjola/circuitgen/internal/testhelpers"
)

func Test_StripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```\n", want: `{"a":1}`},
		{name: "single line fence", in: "```{\"a\":1}```", want: `{"a":1}`},
		{name: "surrounding space", in: "  \n```json\n{}\n```  ", want: "{}"},
		{name: "text", in: "Have a great week!", want: "Have a great week!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ai.StripCodeFences(tt.in); got != tt.want {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func Test_Classify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ai.ErrorType
	}{
		{name: "nil", err: nil, want: ""},
		{name: "no key", err: ai.ErrNoAPIKey, want: ai.ErrorTypeNoKey},
		{name: "wrapped no key", err: errors.Join(errors.New("advise"), ai.ErrNoAPIKey), want: ai.ErrorTypeNoKey},
		{name: "unauthorized", err: &openai.Error{StatusCode: http.StatusUnauthorized}, want: ai.ErrorTypeInvalidKey},
		{name: "rate limited", err: &openai.Error{StatusCode: http.StatusTooManyRequests}, want: ai.ErrorTypeRateLimit},
		{name: "deadline", err: context.DeadlineExceeded, want: ai.ErrorTypeNetwork},
		{name: "dial", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, want: ai.ErrorTypeNetwork},
		{name: "rate limit text", err: errors.New("Rate limit reached for requests"), want: ai.ErrorTypeRateLimit},
		{name: "api key text", err: errors.New("Incorrect API key provided"), want: ai.ErrorTypeInvalidKey},
		{name: "malformed", err: ai.ErrMalformedResponse, want: ai.ErrorTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ai.Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeOpenAI serves the chat completions endpoint with a fixed status and body and records the last request.
func fakeOpenAI(t *testing.T, status int, body string, got *chatRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, baseURL string) *ai.OpenAIClient {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	client, err := ai.NewOpenAIClient("test-key", "", logger, option.WithBaseURL(baseURL+"/"), option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func Test_OpenAIClient_Complete(t *testing.T) {
	const completion = `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1741000000,
		"model": "gpt-4o-mini",
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Stretch well."}}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
	}`
	var got chatRequest
	server := fakeOpenAI(t, http.StatusOK, completion, &got)

	answer, err := newTestClient(t, server.URL).Complete(t.Context(), ai.CompletionRequest{
		SystemPrompt: "be brief",
		UserPrompt:   "how long should I stretch?",
		History:      []ai.Message{{Role: ai.RoleAssistant, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if answer != "Stretch well." {
		t.Errorf("answer = %q", answer)
	}
	if got.Model != ai.DefaultModel {
		t.Errorf("model = %q, want %q", got.Model, ai.DefaultModel)
	}
	wantRoles := []string{"system", "assistant", "user"}
	if len(got.Messages) != len(wantRoles) {
		t.Fatalf("got %d messages, want %d", len(got.Messages), len(wantRoles))
	}
	for i, role := range wantRoles {
		if got.Messages[i].Role != role {
			t.Errorf("message %d role = %q, want %q", i, got.Messages[i].Role, role)
		}
	}
	if got.Messages[2].Content != "how long should I stretch?" {
		t.Errorf("user prompt = %q", got.Messages[2].Content)
	}
}

func Test_OpenAIClient_Errors(t *testing.T) {
	const apiError = `{"error": {"message": "nope", "type": "invalid_request_error", "code": "x"}}`
	tests := []struct {
		name   string
		status int
		body   string
		want   ai.ErrorType
	}{
		{name: "invalid key", status: http.StatusUnauthorized, body: apiError, want: ai.ErrorTypeInvalidKey},
		{name: "rate limit", status: http.StatusTooManyRequests, body: apiError, want: ai.ErrorTypeRateLimit},
		{name: "unavailable", status: http.StatusServiceUnavailable, body: apiError, want: ai.ErrorTypeNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := fakeOpenAI(t, tt.status, tt.body, nil)
			_, err := newTestClient(t, server.URL).Complete(t.Context(), ai.CompletionRequest{
				SystemPrompt: "",
				UserPrompt:   "hi",
				History:      nil,
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := ai.Classify(err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", err, got, tt.want)
			}
		})
	}

	t.Run("empty choices", func(t *testing.T) {
		server := fakeOpenAI(t, http.StatusOK, `{"id": "x", "object": "chat.completion", "choices": []}`, nil)
		_, err := newTestClient(t, server.URL).Complete(t.Context(), ai.CompletionRequest{UserPrompt: "hi"})
		if !errors.Is(err, ai.ErrEmptyCompletion) {
			t.Errorf("err = %v, want ErrEmptyCompletion", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()
		_, err := newTestClient(t, url).Complete(t.Context(), ai.CompletionRequest{UserPrompt: "hi"})
		if got := ai.Classify(err); got != ai.ErrorTypeNetwork {
			t.Errorf("Classify(%v) = %q, want network", err, got)
		}
	})
}

func Test_NewOpenAIClient_NoKey(t *testing.T) {
	_, err := ai.NewOpenAIClient(" ", "", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if !errors.Is(err, ai.ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
}
