// Package format turns provider replies into the single HTML dialect the
// chat UI renders: <b>, <i> and <br> only.
package format

import (
	"regexp"
	"strings"
)

var (
	fenceRe   = regexp.MustCompile("`{3,}[A-Za-z0-9_+-]*")
	headingRe = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+([^\n]*?)[ \t#]*$`)
	bulletRe  = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	boldRe    = regexp.MustCompile(`\*\*([^*\s<>](?:[^*\n<>]*[^*\s<>])?)\*\*`)
	italicRe  = regexp.MustCompile(`\*([^*\s<>](?:[^*\n<>]*[^*\s<>])?)\*`)
	brTagRe   = regexp.MustCompile(`(?i)<br\s*/?>`)
	allowedRe = regexp.MustCompile(`^(?i)</?(?:b|i)>|^<br>`)
)

// DefaultAssistantName is whose labels the package-level helpers strip.
const DefaultAssistantName = "Flora"

var defaultNormalizer = NewNormalizer(DefaultAssistantName)

// Normalizer strips the attribution labels of one assistant. Bracketed
// bold text that does not start with the assistant name is content.
type Normalizer struct {
	labelRe *regexp.Regexp
}

// NewNormalizer builds a normalizer for labels such as
// "<b>[<assistantName> Qwen 7B]</b><br>". An empty name strips any label.
func NewNormalizer(assistantName string) *Normalizer {
	inner := `[^\]<>]{1,64}`
	if name := cleanLabel(assistantName); name != "" {
		inner = `(?i:` + regexp.QuoteMeta(name) + `)(?:[ \t][^\]<>]{0,63})?`
	}
	return &Normalizer{
		labelRe: regexp.MustCompile(`^(?:\s|<br>)*<b>\[` + inner + `\]</b>[ \t]*(?:<br>)?`),
	}
}

// maxPasses bounds the fixed-point loop in Normalize.
const maxPasses = 8

// Normalize converts a reply into display HTML using the default
// assistant name.
func Normalize(text string) string {
	return defaultNormalizer.Normalize(text)
}

// Normalize converts a reply into display HTML. The result is stable:
// Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(text string) string {
	// Stripping a leading label can expose markup at the new start of the
	// text, so the pipeline runs until it stops changing.
	out := n.pass(text)
	for i := 1; i < maxPasses; i++ {
		next := n.pass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func (n *Normalizer) pass(s string) string {
	s = unifyBreaks(s)
	s = sanitize(s)
	s = fenceRe.ReplaceAllString(s, "")
	s = markdown(s)
	s = strings.ReplaceAll(s, "\n", "<br>")
	return n.StripLabel(s)
}

// unifyBreaks turns \r\n, \r, literal "\n" escapes and <br> variants into
// a bare \n so line-based rules see every break.
func unifyBreaks(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, `\n`, "\n")
	return brTagRe.ReplaceAllString(s, "\n")
}

// sanitize escapes every '<' that does not open an allowed tag.
func sanitize(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '<' && !allowedRe.MatchString(s[i:]) {
			b.WriteString("&lt;")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// markdown handles the dialect models actually emit. Bullets go before
// italics so "* item" is not read as emphasis.
func markdown(s string) string {
	s = headingRe.ReplaceAllString(s, "<b>$1</b>")
	s = bulletRe.ReplaceAllString(s, "$1• ")
	s = boldRe.ReplaceAllString(s, "<b>$1</b>")
	return italicRe.ReplaceAllString(s, "<i>$1</i>")
}

// StripLabel removes leading labels of the default assistant.
func StripLabel(s string) string {
	return defaultNormalizer.StripLabel(s)
}

// StripLabel removes leading attribution labels such as
// "<b>[Flora Qwen 7B]</b><br>". Repeated labels are all removed.
func (n *Normalizer) StripLabel(s string) string {
	for {
		loc := n.labelRe.FindStringIndex(s)
		if loc == nil {
			return s
		}
		s = s[loc[1]:]
	}
}
