package llm

import (
	"strings"

	"github.com/roelfdiedericks/floragate/internal/types"
)

// Message is one provider-neutral chat message.
type Message struct {
	Speaker types.Speaker
	Text    string
	Image   *types.ImageAttachment // only honoured on user messages
}

// Prompt is what every adapter receives. The last message is the current
// user turn.
type Prompt struct {
	System   string
	Messages []Message
}

// NewPrompt assembles history plus the current user turn. Empty history
// turns are dropped.
func NewPrompt(system string, history []types.Turn, user string, image *types.ImageAttachment) *Prompt {
	p := &Prompt{System: system, Messages: make([]Message, 0, len(history)+1)}
	for _, t := range history {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		p.Messages = append(p.Messages, Message{Speaker: t.Speaker, Text: t.Text})
	}
	p.Messages = append(p.Messages, Message{Speaker: types.SpeakerUser, Text: user, Image: image})
	return p
}

// Current returns the final user message.
func (p *Prompt) Current() Message {
	if len(p.Messages) == 0 {
		return Message{Speaker: types.SpeakerUser}
	}
	return p.Messages[len(p.Messages)-1]
}

// HasImage reports whether the current turn carries an image.
func (p *Prompt) HasImage() bool {
	return p.Current().Image != nil
}
