package augment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/roelfdiedericks/floragate/internal/search"
)

type fakeSearcher struct {
	res   *search.Result
	err   error
	block chan struct{} // when set, Search waits on it and ignores ctx
	calls int
}

func (f *fakeSearcher) Search(ctx context.Context, query string) (*search.Result, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	return f.res, f.err
}

func TestShouldAugment(t *testing.T) {
	a := New(Options{}, &fakeSearcher{})

	tests := []struct {
		name     string
		message  string
		hasImage bool
		want     bool
	}{
		{"indonesian trigger", "ada berita apa hari ini?", false, true},
		{"english trigger", "What is the latest on the election", false, true},
		{"case insensitive", "BERITA bola semalam", false, true},
		{"no trigger", "tolong buatkan puisi cinta", false, false},
		{"image suppresses", "berita apa di gambar ini", true, false},
		{"too short", "cuaca", false, false},
		{"substring does not count", "newspaperman wants a poem", false, false},
		{"phrase trigger", "siapa juara liga hari ini", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.ShouldAugment(tt.message, tt.hasImage); got != tt.want {
				t.Errorf("ShouldAugment(%q, %v) = %v, want %v", tt.message, tt.hasImage, got, tt.want)
			}
		})
	}
}

func TestCustomTriggers(t *testing.T) {
	a := New(Options{Triggers: []string{"kurs"}, MinLength: 3}, &fakeSearcher{})
	if !a.ShouldAugment("kurs dolar", false) {
		t.Error("custom trigger not matched")
	}
	if a.ShouldAugment("berita dolar", false) {
		t.Error("default triggers should be replaced")
	}
}

func TestFetchSuccess(t *testing.T) {
	s := &fakeSearcher{res: &search.Result{Items: []search.Item{{Title: "Hit", URL: "https://x.example", Snippet: "body"}}}}
	a := New(Options{Timeout: time.Second}, s)

	sc := a.Fetch(context.Background(), "berita")
	if sc.Empty() || !strings.Contains(sc.Summary, "Hit") {
		t.Fatalf("summary = %q", sc.Summary)
	}
	if sc.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestFetchErrorDegrades(t *testing.T) {
	a := New(Options{Timeout: time.Second}, &fakeSearcher{err: errors.New("boom")})
	if sc := a.Fetch(context.Background(), "q"); !sc.Empty() {
		t.Fatalf("expected empty context, got %q", sc.Summary)
	}
}

func TestFetchNeverResolving(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	a := New(Options{Timeout: 50 * time.Millisecond}, &fakeSearcher{block: block})

	start := time.Now()
	sc := a.Fetch(context.Background(), "berita hari ini")
	elapsed := time.Since(start)

	if !sc.Empty() {
		t.Fatalf("expected empty context, got %q", sc.Summary)
	}
	if elapsed > time.Second {
		t.Fatalf("Fetch took %v, timer did not win the race", elapsed)
	}
}

func TestFetchCanceled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	a := New(Options{Timeout: 5 * time.Second}, &fakeSearcher{block: block})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sc := a.Fetch(ctx, "q"); !sc.Empty() {
		t.Fatal("canceled fetch should be empty")
	}
}

func TestAugmentSkipsWithoutTrigger(t *testing.T) {
	s := &fakeSearcher{res: &search.Result{Answer: "x"}}
	a := New(Options{}, s)

	msg, sc := a.Augment(context.Background(), "tulis puisi tentang laut", false)
	if msg != "tulis puisi tentang laut" || sc != nil {
		t.Fatalf("unexpected augmentation: %q %v", msg, sc)
	}
	if s.calls != 0 {
		t.Fatalf("search called %d times", s.calls)
	}
}

func TestAugmentInjects(t *testing.T) {
	a := New(Options{}, &fakeSearcher{res: &search.Result{Answer: "Hujan ringan di Jakarta."}})

	msg, sc := a.Augment(context.Background(), "cuaca jakarta hari ini", false)
	if sc.Empty() {
		t.Fatal("expected context")
	}
	if !strings.Contains(msg, "Hujan ringan di Jakarta.") || !strings.HasSuffix(msg, "Question: cuaca jakarta hari ini") {
		t.Fatalf("message = %q", msg)
	}
}

func TestNilSearcherDisabled(t *testing.T) {
	a := New(Options{}, nil)
	msg, sc := a.Augment(context.Background(), "berita terbaru hari ini", false)
	if msg != "berita terbaru hari ini" || sc != nil {
		t.Fatal("nil searcher should disable augmentation")
	}
}

func TestInjectEmpty(t *testing.T) {
	if got := Inject("halo", nil); got != "halo" {
		t.Errorf("Inject(nil) = %q", got)
	}
	if got := Inject("halo", &SearchContext{}); got != "halo" {
		t.Errorf("Inject(empty) = %q", got)
	}
}
