package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeDataURI(t *testing.T) {
	raw := []byte("hello")
	enc := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"data uri", "data:image/png;base64," + enc, false},
		{"bare base64", enc, false},
		{"unpadded", "data:image/png;base64," + base64.RawStdEncoding.EncodeToString(raw), false},
		{"no comma", "data:image/png;base64", true},
		{"not base64 header", "data:text/plain," + enc, true},
		{"empty payload", "data:image/png;base64,", true},
		{"garbage", "data:image/png;base64,!!!", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDataURI(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != "hello" {
				t.Fatalf("got %q", got)
			}
		})
	}
}

func TestDecodeDataURINotDataURI(t *testing.T) {
	_, err := DecodeDataURI("data:image/png;base64")
	if !errors.Is(err, ErrNotDataURI) {
		t.Fatalf("err = %v, want ErrNotDataURI", err)
	}
}

func TestOptimizeWithinLimits(t *testing.T) {
	data := testPNG(t, 20, 10)
	img, err := Optimize(data, DefaultLimits())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if !bytes.Equal(img.Data, data) {
		t.Error("image within limits should be returned untouched")
	}
	if img.MimeType != "image/png" || img.Width != 20 || img.Height != 10 {
		t.Errorf("unexpected metadata: %+v", img)
	}
}

func TestOptimizeResizes(t *testing.T) {
	data := testPNG(t, 400, 200)
	img, err := Optimize(data, Limits{MaxDimension: 100, MaxBytes: 5 * 1024 * 1024})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if img.Width > 100 || img.Height > 100 {
		t.Errorf("image not resized: %dx%d", img.Width, img.Height)
	}
	if img.Width != 100 || img.Height != 50 {
		t.Errorf("aspect ratio not kept: %dx%d", img.Width, img.Height)
	}
}

func TestOptimizeUnsupported(t *testing.T) {
	if _, err := Optimize([]byte("just some text"), DefaultLimits()); err == nil {
		t.Fatal("expected error for non-image data")
	}
}

func TestPrepare(t *testing.T) {
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG(t, 8, 8))
	img, err := Prepare(uri, DefaultLimits())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	att := img.Attachment()
	if att.MimeType != "image/png" || att.Data == "" {
		t.Errorf("bad attachment: %+v", att)
	}
}

func TestIsImage(t *testing.T) {
	if !IsImage(testPNG(t, 2, 2)) {
		t.Error("png not detected as image")
	}
	if IsImage([]byte("<html></html>")) {
		t.Error("html detected as image")
	}
}
