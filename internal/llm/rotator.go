package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/roelfdiedericks/floragate/internal/logging"
)

// DefaultAttemptTimeout applies when a descriptor sets none.
const DefaultAttemptTimeout = 30 * time.Second

var errAllModelsExhausted = errors.New("all models exhausted")

// Attempt records one adapter call for logs and metrics.
type Attempt struct {
	Provider   string
	Model      string
	Credential string // label only
	Kind       OutcomeKind
	Reason     ErrorType
	Duration   time.Duration
}

// AttemptObserver is told about every attempt as it completes.
type AttemptObserver func(Attempt)

// invoke runs one adapter call under its own deadline. The call is
// raced against the deadline so an adapter that ignores ctx cannot stall
// the cascade; a late result is dropped into the buffered channel.
func invoke(ctx context.Context, a Adapter, p *Prompt, model string, cred Credential, c Capability, timeout time.Duration) Outcome {
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Retryable(ErrorTypeTransport, fmt.Errorf("adapter panic: %v", r))
			}
		}()
		done <- a.Invoke(actx, p, model, cred, c)
	}()

	select {
	case out := <-done:
		if !out.OK() && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			return Retryable(ErrorTypeTimeout, actx.Err())
		}
		return out
	case <-actx.Done():
		if err := ctx.Err(); err != nil {
			return Retryable(ErrorTypeCanceled, err)
		}
		return Retryable(ErrorTypeTimeout, fmt.Errorf("attempt exceeded %s", timeout))
	}
}

// RotateCredentials tries each credential of d in order for one model.
// Retryable moves to the next credential, Fatal stops the loop, Success
// returns. No credentials means Fatal(unconfigured) without any call.
// Every call starts at the first credential; there is no shared cursor.
func RotateCredentials(ctx context.Context, a Adapter, d *Descriptor, model string, p *Prompt, c Capability, observe AttemptObserver) Outcome {
	if len(d.Credentials) == 0 {
		return Fatal(ErrorTypeUnconfigured, fmt.Errorf("provider %s has no credentials", d.ID))
	}

	var last Outcome
	for _, cred := range d.Credentials {
		if err := ctx.Err(); err != nil {
			return Retryable(ErrorTypeCanceled, err)
		}

		start := time.Now()
		out := invoke(ctx, a, p, model, cred, c, d.Timeout)
		if observe != nil {
			observe(Attempt{
				Provider:   d.ID,
				Model:      model,
				Credential: cred.Label,
				Kind:       out.Kind,
				Reason:     out.Reason,
				Duration:   time.Since(start),
			})
		}

		switch out.Kind {
		case OutcomeSuccess:
			out.Provider = d.ID
			out.Model = model
			return out
		case OutcomeFatal:
			L_debug("rotator: fatal, abandoning model", "provider", d.ID, "model", model, "credential", cred, "reason", out.Reason)
			return out
		}
		L_debug("rotator: retryable, next credential", "provider", d.ID, "model", model, "credential", cred, "reason", out.Reason)
		last = out
	}
	return last
}

// WalkModels runs the credential rotation for each model of d in priority
// order. The first success wins. When every model fails the result is
// Retryable(all_models_exhausted) so the cascade moves to the next provider.
func WalkModels(ctx context.Context, a Adapter, d *Descriptor, p *Prompt, c Capability, observe AttemptObserver) Outcome {
	if len(d.Models) == 0 {
		L_warn("rotator: provider has no models", "provider", d.ID)
	}
	for _, model := range d.Models {
		out := RotateCredentials(ctx, a, d, model, p, c, observe)
		if out.OK() {
			return out
		}
		if ctx.Err() != nil {
			return Retryable(ErrorTypeCanceled, ctx.Err())
		}
		L_debug("rotator: model failed", "provider", d.ID, "model", model, "outcome", out.String())
	}
	return Retryable(ErrorTypeModelsExhausted, fmt.Errorf("provider %s: %w", d.ID, errAllModelsExhausted))
}
