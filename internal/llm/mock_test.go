package llm

import (
	"context"
	"sync"
)

type call struct {
	Model      string
	Credential string
}

// scriptedAdapter returns outcomes keyed by "model/credential", then
// "model", then the fallback.
type scriptedAdapter struct {
	mu       sync.Mutex
	calls    []call
	outcomes map[string]Outcome
	fallback Outcome
	block    bool // wait for ctx instead of answering
}

func (s *scriptedAdapter) Invoke(ctx context.Context, p *Prompt, model string, cred Credential, c Capability) Outcome {
	s.mu.Lock()
	s.calls = append(s.calls, call{Model: model, Credential: cred.Label})
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return Classify(ctx.Err())
	}
	if out, ok := s.outcomes[model+"/"+cred.Label]; ok {
		return out
	}
	if out, ok := s.outcomes[model]; ok {
		return out
	}
	return s.fallback
}

func (s *scriptedAdapter) Calls() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

func creds(labels ...string) []Credential {
	out := make([]Credential, len(labels))
	for i, l := range labels {
		out[i] = Credential{Label: l, Key: "key-" + l}
	}
	return out
}

func testPrompt() *Prompt {
	return NewPrompt("be nice", nil, "hello", nil)
}
