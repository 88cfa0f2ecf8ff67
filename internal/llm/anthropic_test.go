package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/roelfdiedericks/floragate/internal/types"
)

func anthropicServer(t *testing.T, status int, body string, seen *map[string]any, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if seen != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const anthropicOK = `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
"content":[{"type":"text","text":"Halo"}],"stop_reason":"end_turn","stop_sequence":null,
"usage":{"input_tokens":3,"output_tokens":1}}`

func TestAnthropicAdapterMessage(t *testing.T) {
	var seen map[string]any
	srv := anthropicServer(t, http.StatusOK, anthropicOK, &seen, nil)
	a := NewAnthropicAdapter(Descriptor{ID: "claude", BaseURL: srv.URL})

	history := []types.Turn{
		{Speaker: types.SpeakerAssistant, Text: "leading assistant turn is dropped"},
		{Speaker: types.SpeakerUser, Text: "one"},
		{Speaker: types.SpeakerUser, Text: "two"},
	}
	img := &types.ImageAttachment{Data: "QUJD", MimeType: "image/png"}
	out := a.Invoke(context.Background(), NewPrompt("sys", history, "look", img), "claude-test", Credential{Key: "k"}, CapabilityVision)
	if !out.OK() || out.Text != "Halo" {
		t.Fatalf("got %s", out)
	}

	msgs := seen["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("consecutive user turns not merged: %d messages", len(msgs))
	}
	user := msgs[0].(map[string]any)
	if user["role"] != "user" {
		t.Fatalf("first role = %v", user["role"])
	}
	blocks := user["content"].([]any)
	var sawImage bool
	for _, b := range blocks {
		if b.(map[string]any)["type"] == "image" {
			sawImage = true
		}
	}
	if !sawImage {
		t.Fatalf("image block missing: %v", blocks)
	}
	if sys, ok := seen["system"].([]any); !ok || len(sys) != 1 {
		t.Fatalf("system = %v", seen["system"])
	}
}

func TestAnthropicAdapterNoSDKRetries(t *testing.T) {
	hits := 0
	srv := anthropicServer(t, http.StatusTooManyRequests,
		`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, nil, &hits)
	a := NewAnthropicAdapter(Descriptor{ID: "claude", BaseURL: srv.URL})

	out := a.Invoke(context.Background(), testPrompt(), "claude-test", Credential{Key: "k"}, CapabilityText)
	if out.Kind != OutcomeRetryable || out.Reason != ErrorTypeRateLimit {
		t.Fatalf("got %s/%s", out.Kind, out.Reason)
	}
	if hits != 1 {
		t.Fatalf("SDK retried: %d hits", hits)
	}
}

func TestAnthropicAdapterRejectsImageGeneration(t *testing.T) {
	a := NewAnthropicAdapter(Descriptor{ID: "claude"})
	out := a.Invoke(context.Background(), testPrompt(), "m", Credential{Key: "k"}, CapabilityImage)
	if out.Kind != OutcomeFatal {
		t.Fatalf("got %s", out)
	}
}
