package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRotateCredentialsEmptyIsUnconfigured(t *testing.T) {
	a := &scriptedAdapter{fallback: Success("never")}
	d := &Descriptor{ID: "p", Models: []string{"m"}}

	out := RotateCredentials(context.Background(), a, d, "m", testPrompt(), CapabilityText, nil)
	if out.Kind != OutcomeFatal || out.Reason != ErrorTypeUnconfigured {
		t.Fatalf("got %s, want fatal unconfigured", out)
	}
	if n := len(a.Calls()); n != 0 {
		t.Fatalf("adapter called %d times, want 0", n)
	}
}

func TestRotateCredentials(t *testing.T) {
	rateLimited := Retryable(ErrorTypeRateLimit, errors.New("429"))
	unsupported := Fatal(ErrorTypeModelUnsupported, errors.New("404"))

	tests := []struct {
		name      string
		outcomes  map[string]Outcome
		fallback  Outcome
		wantKind  OutcomeKind
		wantCalls []string
	}{
		{
			name:      "first credential succeeds",
			fallback:  Success("hi"),
			wantKind:  OutcomeSuccess,
			wantCalls: []string{"a"},
		},
		{
			name:      "retryable advances credential",
			outcomes:  map[string]Outcome{"m/a": rateLimited},
			fallback:  Success("hi"),
			wantKind:  OutcomeSuccess,
			wantCalls: []string{"a", "b"},
		},
		{
			name:      "fatal stops rotation",
			outcomes:  map[string]Outcome{"m/a": unsupported},
			fallback:  Success("hi"),
			wantKind:  OutcomeFatal,
			wantCalls: []string{"a"},
		},
		{
			name:      "all retryable",
			fallback:  rateLimited,
			wantKind:  OutcomeRetryable,
			wantCalls: []string{"a", "b", "c"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &scriptedAdapter{outcomes: tt.outcomes, fallback: tt.fallback}
			d := &Descriptor{ID: "p", Models: []string{"m"}, Credentials: creds("a", "b", "c")}

			var observed []Attempt
			out := RotateCredentials(context.Background(), a, d, "m", testPrompt(), CapabilityText, func(at Attempt) {
				observed = append(observed, at)
			})
			if out.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s", out.Kind, tt.wantKind)
			}
			calls := a.Calls()
			if len(calls) != len(tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", calls, tt.wantCalls)
			}
			for i, c := range calls {
				if c.Credential != tt.wantCalls[i] {
					t.Fatalf("call %d used %s, want %s", i, c.Credential, tt.wantCalls[i])
				}
			}
			if len(observed) != len(calls) {
				t.Fatalf("observed %d attempts, made %d calls", len(observed), len(calls))
			}
			if out.OK() && (out.Provider != "p" || out.Model != "m") {
				t.Fatalf("success not stamped: %+v", out)
			}
		})
	}
}

func TestRotateCredentialsStatelessAcrossCalls(t *testing.T) {
	a := &scriptedAdapter{outcomes: map[string]Outcome{"m/a": Retryable(ErrorTypeRateLimit, errors.New("429"))}, fallback: Success("ok")}
	d := &Descriptor{ID: "p", Credentials: creds("a", "b")}

	for i := 0; i < 2; i++ {
		RotateCredentials(context.Background(), a, d, "m", testPrompt(), CapabilityText, nil)
	}
	calls := a.Calls()
	if len(calls) != 4 || calls[2].Credential != "a" {
		t.Fatalf("second request did not restart at first credential: %v", calls)
	}
}

func TestRotateCredentialsTimeout(t *testing.T) {
	a := &scriptedAdapter{block: true}
	d := &Descriptor{ID: "p", Credentials: creds("a", "b"), Timeout: 20 * time.Millisecond}

	start := time.Now()
	out := RotateCredentials(context.Background(), a, d, "m", testPrompt(), CapabilityText, nil)
	if out.Kind != OutcomeRetryable || out.Reason != ErrorTypeTimeout {
		t.Fatalf("got %s, want retryable timeout", out)
	}
	if len(a.Calls()) != 2 {
		t.Fatalf("each credential should get its own deadline, calls = %d", len(a.Calls()))
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeouts not enforced, took %s", elapsed)
	}
}

func TestInvokeIgnoresAdapterThatIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stuck := AdapterFunc(func(ctx context.Context, p *Prompt, model string, cred Credential, c Capability) Outcome {
		<-release
		return Success("too late")
	})

	out := invoke(context.Background(), stuck, testPrompt(), "m", Credential{Label: "a"}, CapabilityText, 20*time.Millisecond)
	if out.Reason != ErrorTypeTimeout {
		t.Fatalf("got %s, want timeout", out)
	}
}

func TestInvokeRecoversPanic(t *testing.T) {
	boom := AdapterFunc(func(ctx context.Context, p *Prompt, model string, cred Credential, c Capability) Outcome {
		panic("boom")
	})
	out := invoke(context.Background(), boom, testPrompt(), "m", Credential{Label: "a"}, CapabilityText, time.Second)
	if out.Kind != OutcomeRetryable {
		t.Fatalf("got %s, want retryable", out)
	}
}

func TestWalkModels(t *testing.T) {
	unsupported := Fatal(ErrorTypeModelUnsupported, errors.New("no such model"))

	t.Run("fatal moves to next model", func(t *testing.T) {
		a := &scriptedAdapter{outcomes: map[string]Outcome{"m1": unsupported}, fallback: Success("ok")}
		d := &Descriptor{ID: "p", Models: []string{"m1", "m2"}, Credentials: creds("a", "b")}

		out := WalkModels(context.Background(), a, d, testPrompt(), CapabilityText, nil)
		if !out.OK() || out.Model != "m2" {
			t.Fatalf("got %s, want success on m2", out)
		}
		calls := a.Calls()
		if len(calls) != 2 || calls[0] != (call{"m1", "a"}) || calls[1] != (call{"m2", "a"}) {
			t.Fatalf("calls = %v", calls)
		}
	})

	t.Run("exhausted is retryable", func(t *testing.T) {
		a := &scriptedAdapter{fallback: unsupported}
		d := &Descriptor{ID: "p", Models: []string{"m1", "m2"}, Credentials: creds("a")}

		out := WalkModels(context.Background(), a, d, testPrompt(), CapabilityText, nil)
		if out.Kind != OutcomeRetryable || out.Reason != ErrorTypeModelsExhausted {
			t.Fatalf("got %s, want retryable all_models_exhausted", out)
		}
	})

	t.Run("no credentials", func(t *testing.T) {
		a := &scriptedAdapter{fallback: Success("ok")}
		d := &Descriptor{ID: "p", Models: []string{"m1", "m2"}}

		out := WalkModels(context.Background(), a, d, testPrompt(), CapabilityText, nil)
		if out.Reason != ErrorTypeModelsExhausted || len(a.Calls()) != 0 {
			t.Fatalf("got %s with %d calls", out, len(a.Calls()))
		}
	})

	t.Run("canceled parent stops walk", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		a := &scriptedAdapter{fallback: Success("ok")}
		d := &Descriptor{ID: "p", Models: []string{"m1"}, Credentials: creds("a")}

		out := WalkModels(ctx, a, d, testPrompt(), CapabilityText, nil)
		if out.Reason != ErrorTypeCanceled || len(a.Calls()) != 0 {
			t.Fatalf("got %s with %d calls", out, len(a.Calls()))
		}
	})
}
