package llm

import (
	"fmt"
	"strings"

	. "github.com/roelfdiedericks/floragate/internal/logging"
)

// AdapterFactory builds the adapter for one provider.
type AdapterFactory func(d Descriptor) (Adapter, error)

// Entry pairs a provider's descriptor with its adapter.
type Entry struct {
	Descriptor Descriptor
	Adapter    Adapter
}

// Registry holds every configured provider in configuration order.
// It is built once at startup and never mutated.
type Registry struct {
	entries []*Entry
	byID    map[string]*Entry
}

// ProviderStatus is the public, key-free view of one provider.
type ProviderStatus struct {
	ID           string       `json:"id"`
	Driver       string       `json:"driver"`
	Name         string       `json:"name"`
	Capabilities []Capability `json:"capabilities"`
	Models       []string     `json:"models"`
	Credentials  int          `json:"credentials"`
	TimeoutMs    int64        `json:"timeoutMs"`
}

// NewRegistry builds adapters for all descriptors. A nil factory uses
// NewAdapter.
func NewRegistry(descs []Descriptor, factory AdapterFactory) (*Registry, error) {
	if factory == nil {
		factory = NewAdapter
	}
	r := &Registry{byID: make(map[string]*Entry, len(descs))}

	for _, d := range descs {
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate provider id: %s", d.ID)
		}
		adapter, err := factory(d)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", d.ID, err)
		}
		e := &Entry{Descriptor: d, Adapter: adapter}
		r.entries = append(r.entries, e)
		r.byID[d.ID] = e

		L_debug("llm: provider initialized",
			"id", d.ID,
			"driver", d.Driver,
			"models", len(d.Models),
			"credentials", len(d.Credentials),
		)
	}

	L_info("llm: registry created", "providers", len(r.entries))
	return r, nil
}

// Get returns a provider by ID.
func (r *Registry) Get(id string) (*Entry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Select returns the providers offering capability c, in configuration
// order, with the hinted provider moved to the front. Unknown hints are
// ignored.
func (r *Registry) Select(c Capability, hint string) []*Entry {
	var out []*Entry
	hinted := -1
	hint = strings.TrimSpace(hint)

	for _, e := range r.entries {
		if !e.Descriptor.Has(c) {
			continue
		}
		if hint != "" && strings.EqualFold(e.Descriptor.ID, hint) {
			hinted = len(out)
		}
		out = append(out, e)
	}

	if hint != "" && hinted < 0 {
		L_debug("llm: provider hint ignored", "hint", hint, "capability", c)
	}
	if hinted > 0 {
		e := out[hinted]
		copy(out[1:hinted+1], out[:hinted])
		out[0] = e
	}
	return out
}

// Status lists providers without exposing credentials.
func (r *Registry) Status() []ProviderStatus {
	out := make([]ProviderStatus, 0, len(r.entries))
	for _, e := range r.entries {
		d := e.Descriptor
		out = append(out, ProviderStatus{
			ID:           d.ID,
			Driver:       d.Driver,
			Name:         d.Name(),
			Capabilities: d.Capabilities,
			Models:       d.Models,
			Credentials:  len(d.Credentials),
			TimeoutMs:    d.Timeout.Milliseconds(),
		})
	}
	return out
}

// Len returns the number of providers.
func (r *Registry) Len() int {
	return len(r.entries)
}
