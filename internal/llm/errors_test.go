package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/roelfdiedericks/xai-go"
	"github.com/sashabaranov/go-openai"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   OutcomeKind
		wantReason ErrorType
	}{
		{"deadline", context.DeadlineExceeded, OutcomeRetryable, ErrorTypeTimeout},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), OutcomeRetryable, ErrorTypeTimeout},
		{"canceled", context.Canceled, OutcomeRetryable, ErrorTypeCanceled},
		{"empty", fmt.Errorf("x: %w", ErrEmptyResponse), OutcomeRetryable, ErrorTypeParse},
		{"openai 404", &openai.APIError{HTTPStatusCode: 404, Message: "The model `x` does not exist"}, OutcomeFatal, ErrorTypeModelUnsupported},
		{"openai 429", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, OutcomeRetryable, ErrorTypeRateLimit},
		{"openai 401", &openai.APIError{HTTPStatusCode: 401, Message: "bad key", Type: "invalid_request_error"}, OutcomeRetryable, ErrorTypeAuth},
		{"openai request 503", &openai.RequestError{HTTPStatusCode: 503, Err: errors.New("unavailable")}, OutcomeRetryable, ErrorTypeOverloaded},
		{"anthropic 529", &anthropic.Error{StatusCode: 529}, OutcomeRetryable, ErrorTypeOverloaded},
		{"anthropic 400", &anthropic.Error{StatusCode: 400}, OutcomeFatal, ErrorTypeModelUnsupported},
		{"http 402", &HTTPError{StatusCode: http.StatusPaymentRequired}, OutcomeRetryable, ErrorTypeBilling},
		{"http 500", &HTTPError{StatusCode: 500}, OutcomeRetryable, ErrorTypeTransient},
		{"http 502", &HTTPError{StatusCode: 502}, OutcomeRetryable, ErrorTypeTransient},
		{"http 422", &HTTPError{StatusCode: 422}, OutcomeFatal, ErrorTypeModelUnsupported},
		{"xai not found", &xai.Error{Code: xai.ErrNotFound}, OutcomeFatal, ErrorTypeModelUnsupported},
		{"message model_not_found", errors.New("error: model_not_found"), OutcomeFatal, ErrorTypeModelUnsupported},
		{"message quota", errors.New("You exceeded your current quota"), OutcomeRetryable, ErrorTypeRateLimit},
		{"message loading", errors.New("Model is currently loading"), OutcomeRetryable, ErrorTypeOverloaded},
		{"network", errors.New("dial tcp: connection refused"), OutcomeRetryable, ErrorTypeTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Classify(tt.err)
			if out.Kind != tt.wantKind || out.Reason != tt.wantReason {
				t.Fatalf("Classify(%s) = %s/%s, want %s/%s", tt.name, out.Kind, out.Reason, tt.wantKind, tt.wantReason)
			}
			if out.Err == nil {
				t.Fatal("classified outcome lost its cause")
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorType
	}{
		{"", ErrorTypeUnknown},
		{"HTTP 429 Too Many Requests", ErrorTypeRateLimit},
		{"server is busy", ErrorTypeOverloaded},
		{"402 Payment Required", ErrorTypeBilling},
		{"invalid api key provided", ErrorTypeAuth},
		{"request timed out", ErrorTypeTimeout},
		{"something odd", ErrorTypeUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyError(tt.msg); got != tt.want {
			t.Errorf("ClassifyError(%q) = %s, want %s", tt.msg, got, tt.want)
		}
	}
}

func TestHTTPErrorTruncatesBody(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	e := &HTTPError{StatusCode: 500, Body: string(long)}
	if got := len(e.Error()); got > 230 {
		t.Fatalf("error string too long: %d", got)
	}
}
