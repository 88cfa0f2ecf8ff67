package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/roelfdiedericks/xai-go"
	"github.com/sashabaranov/go-openai"
)

// ErrorType categorizes attempt failures for rotation decisions and logs.
type ErrorType string

const (
	ErrorTypeUnknown          ErrorType = "unknown"
	ErrorTypeUnconfigured     ErrorType = "unconfigured"
	ErrorTypeModelUnsupported ErrorType = "model_unsupported"
	ErrorTypeRateLimit        ErrorType = "rate_limit"
	ErrorTypeOverloaded       ErrorType = "overloaded"
	ErrorTypeTransient        ErrorType = "transient"
	ErrorTypeAuth             ErrorType = "auth"
	ErrorTypeBilling          ErrorType = "billing"
	ErrorTypeTimeout          ErrorType = "timeout"
	ErrorTypeTransport        ErrorType = "transport"
	ErrorTypeParse            ErrorType = "parse"
	ErrorTypeCanceled         ErrorType = "canceled"
	ErrorTypeModelsExhausted  ErrorType = "all_models_exhausted"
	ErrorTypeExhausted        ErrorType = "exhausted"
)

// HTTPError is returned by adapters that speak plain HTTP.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, body)
}

// ErrEmptyResponse marks a provider reply with no usable content.
var ErrEmptyResponse = errors.New("provider returned no content")

// Classify maps an adapter error to an Outcome. Typed SDK errors are
// inspected first; message patterns are the fallback.
func Classify(err error) Outcome {
	if err == nil {
		return Retryable(ErrorTypeUnknown, errors.New("classify called with nil error"))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Retryable(ErrorTypeTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return Retryable(ErrorTypeCanceled, err)
	}
	if errors.Is(err, ErrEmptyResponse) {
		return Retryable(ErrorTypeParse, err)
	}

	if status := statusCode(err); status != 0 {
		if out, ok := classifyStatus(status, err); ok {
			return out
		}
	}

	msg := err.Error()
	if IsModelUnsupportedMessage(msg) {
		return Fatal(ErrorTypeModelUnsupported, err)
	}
	if t := ClassifyError(msg); t != ErrorTypeUnknown {
		return Retryable(t, err)
	}
	return Retryable(ErrorTypeTransport, err)
}

// statusCode extracts an HTTP status from known SDK error types.
func statusCode(err error) int {
	var oaiAPI *openai.APIError
	if errors.As(err, &oaiAPI) {
		return oaiAPI.HTTPStatusCode
	}
	var oaiReq *openai.RequestError
	if errors.As(err, &oaiReq) {
		return oaiReq.HTTPStatusCode
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return antErr.StatusCode
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	var xaiErr *xai.Error
	if errors.As(err, &xaiErr) && xaiErr.Code == xai.ErrNotFound {
		return http.StatusNotFound
	}
	return 0
}

// classifyStatus maps a status code. ok is false for codes that carry no
// decision on their own, leaving the message patterns to decide.
func classifyStatus(status int, err error) (Outcome, bool) {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusMethodNotAllowed,
		http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return Fatal(ErrorTypeModelUnsupported, err), true
	case http.StatusUnauthorized, http.StatusForbidden:
		return Retryable(ErrorTypeAuth, err), true
	case http.StatusPaymentRequired:
		return Retryable(ErrorTypeBilling, err), true
	case http.StatusTooManyRequests:
		return Retryable(ErrorTypeRateLimit, err), true
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return Retryable(ErrorTypeTimeout, err), true
	case http.StatusServiceUnavailable, 529:
		return Retryable(ErrorTypeOverloaded, err), true
	case http.StatusConflict, http.StatusTooEarly:
		return Retryable(ErrorTypeTransient, err), true
	}
	if status >= 500 {
		return Retryable(ErrorTypeTransient, err), true
	}
	return Outcome{}, false
}

// ClassifyError determines the retryable error type from an error message.
// Returns ErrorTypeUnknown if the error doesn't match any known pattern.
func ClassifyError(msg string) ErrorType {
	if msg == "" {
		return ErrorTypeUnknown
	}
	// billing before auth: some 402 bodies mention "authentication"
	if IsRateLimitMessage(msg) {
		return ErrorTypeRateLimit
	}
	if IsOverloadedMessage(msg) {
		return ErrorTypeOverloaded
	}
	if IsBillingMessage(msg) {
		return ErrorTypeBilling
	}
	if IsAuthMessage(msg) {
		return ErrorTypeAuth
	}
	if IsTimeoutMessage(msg) {
		return ErrorTypeTimeout
	}
	return ErrorTypeUnknown
}

// IsModelUnsupportedMessage checks if a message says the model cannot serve
// this request at all (unknown model, bad request shape).
func IsModelUnsupportedMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "model_not_found") ||
		strings.Contains(lower, "model not found") ||
		strings.Contains(lower, "does not exist") ||
		strings.Contains(lower, "not supported") ||
		strings.Contains(lower, "unsupported model") ||
		strings.Contains(lower, "is not a chat model") ||
		strings.Contains(lower, "invalid_request_error") ||
		strings.Contains(lower, "invalid model")
}

// IsRateLimitMessage checks if a message indicates rate limiting.
func IsRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "429") ||
		strings.Contains(lower, "rate_limit") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "exceeded your current quota") ||
		strings.Contains(lower, "quota exceeded") ||
		strings.Contains(lower, "resource_exhausted") ||
		strings.Contains(lower, "resource has been exhausted") ||
		strings.Contains(lower, "requests per minute") ||
		strings.Contains(lower, "requests per day")
}

// IsOverloadedMessage checks if a message indicates the service is overloaded.
func IsOverloadedMessage(msg string) bool {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "503") && (strings.Contains(lower, "service") || strings.Contains(lower, "unavailable")) {
		return true
	}
	return strings.Contains(lower, "overloaded") ||
		strings.Contains(lower, "server is busy") ||
		strings.Contains(lower, "temporarily unavailable") ||
		strings.Contains(lower, "currently loading") || // HF cold start
		strings.Contains(lower, "capacity")
}

// IsAuthMessage checks if a message indicates authentication failure.
func IsAuthMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "401") ||
		strings.Contains(lower, "403") ||
		strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "invalid_api_key") ||
		strings.Contains(lower, "incorrect api key") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "unauthenticated") ||
		strings.Contains(lower, "permission_denied") ||
		strings.Contains(lower, "forbidden") ||
		strings.Contains(lower, "token has expired") ||
		strings.Contains(lower, "invalid credentials")
}

// IsBillingMessage checks if a message indicates billing/payment issues.
func IsBillingMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "402") ||
		strings.Contains(lower, "payment required") ||
		strings.Contains(lower, "insufficient credits") ||
		strings.Contains(lower, "credit balance") ||
		strings.Contains(lower, "insufficient_quota") ||
		strings.Contains(lower, "billing")
}

// IsTimeoutMessage checks if a message indicates a timeout.
func IsTimeoutMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "408") ||
		strings.Contains(lower, "504") ||
		strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded") ||
		strings.Contains(lower, "connection reset")
}
