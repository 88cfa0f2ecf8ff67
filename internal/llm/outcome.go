package llm

import "fmt"

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRetryable
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Outcome is the result of one attempt, one model walk or one cascade.
// Only Success carries content; failures carry a Reason and the cause.
type Outcome struct {
	Kind     OutcomeKind
	Text     string
	ImageURL string
	Provider string
	Model    string
	Reason   ErrorType
	Err      error
}

// Success builds a successful text outcome.
func Success(text string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Text: text}
}

// ImageSuccess builds a successful image outcome.
func ImageSuccess(url string) Outcome {
	return Outcome{Kind: OutcomeSuccess, ImageURL: url}
}

// Retryable builds an outcome that moves on to the next credential.
func Retryable(reason ErrorType, err error) Outcome {
	return Outcome{Kind: OutcomeRetryable, Reason: reason, Err: err}
}

// Fatal builds an outcome that abandons the current model.
func Fatal(reason ErrorType, err error) Outcome {
	return Outcome{Kind: OutcomeFatal, Reason: reason, Err: err}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

func (o Outcome) String() string {
	if o.OK() {
		return fmt.Sprintf("success(%s/%s)", o.Provider, o.Model)
	}
	if o.Err != nil {
		return fmt.Sprintf("%s(%s: %v)", o.Kind, o.Reason, o.Err)
	}
	return fmt.Sprintf("%s(%s)", o.Kind, o.Reason)
}
