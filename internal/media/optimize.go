package media

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"

	// Register additional image formats
	_ "golang.org/x/image/webp"
)

// Quality levels to try (descending order)
var qualityLevels = []int{85, 75, 65, 55, 45, 35}

// Dimension steps tried after the limit itself, largest first
var dimensionLevels = []int{1800, 1600, 1400, 1200, 1000, 800}

// Optimize resizes and compresses an image until it fits limits.
// Images already within limits are returned untouched.
func Optimize(data []byte, limits Limits) (*ImageData, error) {
	mimeType := DetectMIME(data)
	if !IsSupported(mimeType) {
		return nil, fmt.Errorf("unsupported image type: %s", mimeType)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	orig := &ImageData{Data: data, MimeType: mimeType, Width: bounds.Dx(), Height: bounds.Dy()}
	if orig.within(limits) {
		return orig, nil
	}

	return shrink(img, format, limits)
}

// shrink walks dimension and quality steps and returns the first encoding
// that fits limits.
func shrink(img image.Image, format string, limits Limits) (*ImageData, error) {
	bounds := img.Bounds()
	longest := max(bounds.Dx(), bounds.Dy())

	targets := []int{min(longest, limits.MaxDimension)}
	for _, d := range dimensionLevels {
		if d < targets[0] {
			targets = append(targets, d)
		}
	}

	var smallest *ImageData
	for _, target := range targets {
		resized := img
		if bounds.Dx() > target || bounds.Dy() > target {
			resized = imaging.Fit(img, target, target, imaging.Lanczos)
		}
		rb := resized.Bounds()

		for _, quality := range qualityLevels {
			encoded, mimeType, err := encodeImage(resized, format, quality)
			if err != nil {
				continue
			}
			out := &ImageData{Data: encoded, MimeType: mimeType, Width: rb.Dx(), Height: rb.Dy()}
			if out.within(limits) {
				return out, nil
			}
			if smallest == nil || len(encoded) < len(smallest.Data) {
				smallest = out
			}
			// PNG and GIF have no quality knob
			if mimeType != "image/jpeg" {
				break
			}
		}
	}

	if smallest == nil {
		return nil, fmt.Errorf("failed to optimize image")
	}
	return nil, fmt.Errorf("image could not be reduced below %d bytes (got %d)", limits.MaxBytes, len(smallest.Data))
}

func encodeImage(img image.Image, format string, quality int) ([]byte, string, error) {
	var buf bytes.Buffer

	switch format {
	case "png":
		err := png.Encode(&buf, img)
		return buf.Bytes(), "image/png", err
	case "gif":
		err := gif.Encode(&buf, img, nil)
		return buf.Bytes(), "image/gif", err
	default:
		// jpeg, and webp which Go can only decode
		err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
		return buf.Bytes(), "image/jpeg", err
	}
}
