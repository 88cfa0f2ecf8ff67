package format

import (
	"strings"

	"github.com/roelfdiedericks/floragate/internal/llm"
	"github.com/roelfdiedericks/floragate/internal/types"
)

// cleanLabel drops the characters that would break label markup.
func cleanLabel(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '<', '>', '\n', '\r':
			return -1
		}
		return r
	}, strings.TrimSpace(name))
}

// Label builds the attribution prefix for a reply.
func Label(name string) string {
	name = cleanLabel(name)
	if name == "" {
		return ""
	}
	return "<b>[" + name + "]</b><br>"
}

// Response is the one normalized reply produced per request.
type Response struct {
	DisplayText      string
	AttributionLabel string
	Raw              llm.Outcome
}

// Reply returns label followed by display text.
func (r *Response) Reply() string {
	return r.AttributionLabel + r.DisplayText
}

// NewResponse normalizes a successful outcome with the default assistant.
func NewResponse(out llm.Outcome, labelName string) *Response {
	return defaultNormalizer.NewResponse(out, labelName)
}

// NewResponse normalizes a successful outcome. labelName is the
// attribution, for example "Flora Qwen 7B".
func (n *Normalizer) NewResponse(out llm.Outcome, labelName string) *Response {
	return &Response{
		DisplayText:      n.Normalize(out.Text),
		AttributionLabel: Label(labelName),
		Raw:              out,
	}
}

// NormalizeHistory returns a copy of history with assistant turns
// normalized, so earlier labels and markdown never reach a provider twice.
// User turns only lose labels; their text is otherwise the caller's.
func NormalizeHistory(history []types.Turn) []types.Turn {
	return defaultNormalizer.NormalizeHistory(history)
}

// NormalizeHistory is NormalizeHistory for this normalizer's assistant.
func (n *Normalizer) NormalizeHistory(history []types.Turn) []types.Turn {
	out := make([]types.Turn, len(history))
	for i, t := range history {
		if t.Speaker == types.SpeakerAssistant {
			t.Text = n.Normalize(t.Text)
		} else {
			t.Text = n.StripLabel(t.Text)
		}
		out[i] = t
	}
	return out
}
