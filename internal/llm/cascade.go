package llm

import (
	"context"
	"fmt"
	"time"

	. "github.com/roelfdiedericks/floragate/internal/logging"
	. "github.com/roelfdiedericks/floragate/internal/metrics"
	"github.com/roelfdiedericks/floragate/internal/types"
)

// State is where the cascade controller stands.
type State int

const (
	StateNotStarted State = iota
	StateTryingProvider
	StateSucceeded
	StateAllProvidersExhausted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateTryingProvider:
		return "trying_provider"
	case StateSucceeded:
		return "succeeded"
	case StateAllProvidersExhausted:
		return "all_providers_exhausted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Request is one cascade run.
type Request struct {
	Prompt       *Prompt
	Capability   Capability
	ProviderHint string
}

// Result is the terminal cascade value. Exhaustion is a Result, not an
// error. Outcome is only meaningful when State is StateSucceeded.
type Result struct {
	State    State
	Outcome  Outcome
	Provider *Descriptor
	Reason   ErrorType // why the cascade ended without success
	Attempts []Attempt
	Duration time.Duration
}

// Cascade walks providers in order until one succeeds.
type Cascade struct {
	registry *Registry
}

// NewCascade creates a controller over a registry.
func NewCascade(r *Registry) *Cascade {
	return &Cascade{registry: r}
}

// Registry returns the registry the cascade walks.
func (c *Cascade) Registry() *Registry {
	return c.registry
}

// Run drives NotStarted -> TryingProvider(i) -> Succeeded | AllProvidersExhausted.
// Attempts within a run are strictly sequential.
func (c *Cascade) Run(ctx context.Context, req Request) *Result {
	start := time.Now()
	res := &Result{State: StateNotStarted}
	reqID := types.RequestID(ctx)

	providers := c.registry.Select(req.Capability, req.ProviderHint)
	observe := func(a Attempt) {
		res.Attempts = append(res.Attempts, a)
		topic := "llm/" + a.Provider
		MetricDuration(topic, "attempt", a.Duration)
		if a.Kind == OutcomeSuccess {
			MetricSuccess(topic, "attempt")
		} else {
			MetricFailWithReason(topic, "attempt", string(a.Reason))
		}
	}

	for i, e := range providers {
		if err := ctx.Err(); err != nil {
			res.Reason = ErrorTypeCanceled
			break
		}
		res.State = StateTryingProvider
		L_debug("cascade: trying provider", "request", reqID, "index", i, "provider", e.Descriptor.ID, "capability", req.Capability)

		out := WalkModels(ctx, e.Adapter, &e.Descriptor, req.Prompt, req.Capability, observe)
		if out.OK() {
			res.State = StateSucceeded
			res.Outcome = out
			res.Provider = &e.Descriptor
			break
		}
		if out.Reason == ErrorTypeCanceled {
			res.Reason = ErrorTypeCanceled
			break
		}
		L_info("cascade: provider exhausted, falling back", "request", reqID, "provider", e.Descriptor.ID, "reason", out.Reason)
	}

	if res.State != StateSucceeded {
		res.State = StateAllProvidersExhausted
		if res.Reason == "" {
			res.Reason = ErrorTypeExhausted
		}
	}
	res.Duration = time.Since(start)

	MetricDuration("cascade", string(req.Capability), res.Duration)
	MetricOutcome("cascade", string(req.Capability), res.State.String())

	if res.State == StateSucceeded {
		L_info("cascade: succeeded",
			"request", reqID,
			"provider", res.Outcome.Provider,
			"model", res.Outcome.Model,
			"attempts", len(res.Attempts),
			"elapsed", res.Duration.Round(time.Millisecond),
		)
	} else {
		L_warn("cascade: all providers exhausted",
			"request", reqID,
			"capability", req.Capability,
			"providers", len(providers),
			"attempts", len(res.Attempts),
			"reason", res.Reason,
		)
	}
	return res
}
