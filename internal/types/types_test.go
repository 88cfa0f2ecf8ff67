package types

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := RequestID(ctx); got != "" {
		t.Fatalf("empty context returned %q", got)
	}
	ctx = WithRequestID(ctx, "abc")
	if got := RequestID(ctx); got != "abc" {
		t.Fatalf("RequestID = %q, want abc", got)
	}
}

func TestHasImage(t *testing.T) {
	tests := []struct {
		image string
		want  bool
	}{
		{"", false},
		{"   ", false},
		{"data:image/png;base64,AAAA", true},
	}
	for _, tt := range tests {
		r := ChatRequest{Image: tt.image}
		if got := r.HasImage(); got != tt.want {
			t.Errorf("HasImage(%q) = %v, want %v", tt.image, got, tt.want)
		}
	}
}

func TestSpeakerValid(t *testing.T) {
	if !SpeakerUser.Valid() || !SpeakerAssistant.Valid() {
		t.Fatal("known speakers reported invalid")
	}
	if Speaker("system").Valid() {
		t.Fatal("system speaker should be invalid")
	}
}

func TestDataURI(t *testing.T) {
	a := &ImageAttachment{Data: "QUJD", MimeType: "image/png"}
	if got := a.DataURI(); got != "data:image/png;base64,QUJD" {
		t.Fatalf("DataURI = %q", got)
	}
	var nilAtt *ImageAttachment
	if nilAtt.DataURI() != "" {
		t.Fatal("nil attachment should render empty")
	}
}
