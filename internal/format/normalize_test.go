package format

import (
	"testing"

	"github.com/roelfdiedericks/floragate/internal/llm"
	"github.com/roelfdiedericks/floragate/internal/types"
)

var normalizeCases = []struct {
	name string
	in   string
	want string
}{
	{"bold and trailing newline", "**Halo** dunia\n", "<b>Halo</b> dunia<br>"},
	{"plain", "apa kabar", "apa kabar"},
	{"code fence", "```go\nfmt.Println()\n```", "<br>fmt.Println()<br>"},
	{"heading", "# Judul\nisi", "<b>Judul</b><br>isi"},
	{"closed heading", "## Judul ##", "<b>Judul</b>"},
	{"bullets", "- satu\n- dua", "• satu<br>• dua"},
	{"star bullet then italic", "* item *miring*", "• item <i>miring</i>"},
	{"line endings", "a\r\nb\rc\\nd", "a<br>b<br>c<br>d"},
	{"br variants", "Line<br/>two<BR />three", "Line<br>two<br>three"},
	{"arithmetic is not emphasis", "2 * 3 * 4", "2 * 3 * 4"},
	{"script escaped", "<script>alert(1)</script>", "&lt;script>alert(1)&lt;/script>"},
	{"allowed tags kept", "<b>x</b> <i>y</i>", "<b>x</b> <i>y</i>"},
	{"label stripped", "<b>[Flora Qwen 7B]</b><br>Halo", "Halo"},
	{"markdown label stripped", "**[Flora]**\nHalo", "Halo"},
	{"repeated labels stripped", "<b>[Flora]</b><br><b>[Flora Grok]</b><br>Halo", "Halo"},
	{"bracketed bold content kept", "**[Catatan]** penting", "<b>[Catatan]</b> penting"},
	{"name prefix is not a label", "<b>[Floral]</b> motif", "<b>[Floral]</b> motif"},
	{"label followed by bullet", "<b>[Flora]</b> - x", "• x"},
	{"bold bracket not at start kept", "see <b>[1]</b>", "see <b>[1]</b>"},
	{"leading whitespace kept without label", "  hi", "  hi"},
	{"empty", "", ""},
}

func TestNormalize(t *testing.T) {
	for _, tt := range normalizeCases {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q)\n got %q\nwant %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	extra := []string{
		"***a***",
		"*a**b*",
		"``x```y`",
		"````md\n# t\n````",
		"<b>[X]</b><br><br>body",
		"• already",
		"a &lt; b",
		"# [Label]\nrest",
	}
	inputs := extra
	for _, c := range normalizeCases {
		inputs = append(inputs, c.in)
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("not idempotent for %q:\n once %q\ntwice %q", in, once, twice)
		}
	}
}

func TestStripLabelRemovesLeadingLabels(t *testing.T) {
	bodies := []string{"Halo", "<b>Halo</b> dunia<br>", "<br>starts with break", "• list"}
	label := Label("Flora Qwen 7B")
	for _, body := range bodies {
		if got := StripLabel(label + body); got != body {
			t.Errorf("StripLabel(label+%q) = %q", body, got)
		}
		if got := StripLabel(label + Label("Flora Grok") + body); got != body {
			t.Errorf("StripLabel(two labels+%q) = %q", body, got)
		}
	}
}

func TestNormalizerAssistantName(t *testing.T) {
	n := NewNormalizer("Mira")
	tests := []struct {
		in   string
		want string
	}{
		{"<b>[Mira Claude]</b><br>Halo", "Halo"},
		{"<b>[mira]</b><br>Halo", "Halo"},
		{"<b>[Flora Qwen 7B]</b><br>Halo", "<b>[Flora Qwen 7B]</b><br>Halo"},
		{"**[Catatan]**\nisi", "<b>[Catatan]</b><br>isi"},
	}
	for _, tt := range tests {
		if got := n.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	unnamed := NewNormalizer("")
	if got := unnamed.StripLabel("<b>[Whoever]</b><br>x"); got != "x" {
		t.Errorf("unnamed normalizer kept label: %q", got)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Flora Qwen 7B", "<b>[Flora Qwen 7B]</b><br>"},
		{"  Flora  ", "<b>[Flora]</b><br>"},
		{"bad]<name>", "<b>[badname]</b><br>"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Label(tt.in); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewResponse(t *testing.T) {
	out := llm.Success("**Halo** dunia\n")
	out.Provider = "hf"
	r := NewResponse(out, "Flora Qwen 7B")
	if r.DisplayText != "<b>Halo</b> dunia<br>" {
		t.Fatalf("display = %q", r.DisplayText)
	}
	if r.Reply() != "<b>[Flora Qwen 7B]</b><br><b>Halo</b> dunia<br>" {
		t.Fatalf("reply = %q", r.Reply())
	}
	if r.Raw.Provider != "hf" {
		t.Fatal("raw outcome not kept")
	}
}

func TestNormalizeHistory(t *testing.T) {
	in := []types.Turn{
		{Speaker: types.SpeakerUser, Text: "<b>[Flora]</b><br>hi\n"},
		{Speaker: types.SpeakerAssistant, Text: "<b>[Flora]</b><br>**ok**"},
	}
	got := NormalizeHistory(in)
	if got[0].Text != "hi\n" || got[1].Text != "<b>ok</b>" {
		t.Fatalf("got %+v", got)
	}
	if in[1].Text != "<b>[Flora]</b><br>**ok**" {
		t.Fatal("input history was mutated")
	}
}
