package tokens

import "github.com/roelfdiedericks/floragate/internal/types"

// TrimHistory drops the oldest turns until the remaining history fits
// within budget tokens. The newest turn is kept even when it alone exceeds
// the budget. A budget <= 0 disables trimming. The input is never modified.
func (e *Estimator) TrimHistory(history []types.Turn, budget int) []types.Turn {
	if budget <= 0 || len(history) == 0 {
		return history
	}

	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := e.CountTurn(history[i].Text)
		if total+cost > budget && start < len(history) {
			break
		}
		total += cost
		start = i
	}

	// Never open the replay with an assistant turn
	for start < len(history)-1 && history[start].Speaker == types.SpeakerAssistant {
		start++
	}
	return history[start:]
}
