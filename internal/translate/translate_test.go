package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestToEnglish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("client") != "gtx" || q.Get("tl") != "en" || q.Get("q") != "kucing lucu. pakai topi" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`[[["cute cat. ","kucing lucu. ",null,null,10],["wearing a hat","pakai topi",null,null,10]],null,"id"]`))
	}))
	defer srv.Close()

	tr := New(Options{BaseURL: srv.URL})
	if got := tr.ToEnglish(context.Background(), "kucing lucu. pakai topi"); got != "cute cat. wearing a hat" {
		t.Fatalf("got %q", got)
	}
}

func TestToEnglishFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`<html>`)) }},
		{"empty array", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`[]`)) }},
		{"no segments", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`[[]]`)) }},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			tr := New(Options{BaseURL: srv.URL, Timeout: 100 * time.Millisecond})
			if got := tr.ToEnglish(context.Background(), "kucing"); got != "kucing" {
				t.Fatalf("got %q, want original", got)
			}
		})
	}
}

func TestToEnglishEmpty(t *testing.T) {
	var tr *Translator
	if got := tr.ToEnglish(context.Background(), "apa"); got != "apa" {
		t.Errorf("nil translator = %q", got)
	}
	if got := New(Options{}).ToEnglish(context.Background(), "  "); got != "  " {
		t.Errorf("blank = %q", got)
	}
}
