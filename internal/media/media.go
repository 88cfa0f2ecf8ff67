// Package media decodes and prepares caller-supplied images for vision
// providers: data URI parsing, MIME sniffing and downscaling.
package media

import (
	"encoding/base64"

	"github.com/gabriel-vasile/mimetype"

	"github.com/roelfdiedericks/floragate/internal/types"
)

// Limits bounds what is forwarded to a vision provider.
type Limits struct {
	MaxDimension int // Max width or height in pixels
	MaxBytes     int // Max encoded size
}

// DefaultLimits fit every vision provider we talk to
// (Anthropic is the strictest at 5MB / 2000px).
func DefaultLimits() Limits {
	return Limits{
		MaxDimension: 2000,
		MaxBytes:     5 * 1024 * 1024,
	}
}

var supportedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageData is a processed image ready for a provider
type ImageData struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// Base64 returns the image data as a base64-encoded string
func (img *ImageData) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// Attachment converts the image into the shared attachment type.
func (img *ImageData) Attachment() *types.ImageAttachment {
	return &types.ImageAttachment{
		Data:     img.Base64(),
		MimeType: img.MimeType,
	}
}

func (img *ImageData) within(l Limits) bool {
	return img.Width <= l.MaxDimension && img.Height <= l.MaxDimension && len(img.Data) <= l.MaxBytes
}

// DetectMIME returns the MIME type from magic bytes
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// IsSupported returns true if the MIME type can be sent to a vision model
func IsSupported(mimeType string) bool {
	return supportedMIMETypes[mimeType]
}

// IsImage reports whether data sniffs as any image type.
func IsImage(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("image/jpeg") || m.Is("image/png") || m.Is("image/gif") || m.Is("image/webp") {
			return true
		}
	}
	return false
}
