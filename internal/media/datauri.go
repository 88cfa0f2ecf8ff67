package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrNotDataURI is returned when the input is not a base64 data URI.
var ErrNotDataURI = errors.New("not a base64 data URI")

// DecodeDataURI parses "data:<mime>;base64,<payload>" and returns the raw
// bytes. The declared MIME type is not trusted; callers sniff the bytes.
// A bare base64 payload without the data: prefix is accepted too.
func DecodeDataURI(uri string) ([]byte, error) {
	uri = strings.TrimSpace(uri)
	payload := uri
	if strings.HasPrefix(uri, "data:") {
		comma := strings.IndexByte(uri, ',')
		if comma < 0 {
			return nil, ErrNotDataURI
		}
		header := uri[len("data:"):comma]
		if !strings.HasSuffix(header, ";base64") {
			return nil, ErrNotDataURI
		}
		payload = uri[comma+1:]
	}
	if payload == "" {
		return nil, ErrNotDataURI
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some browsers emit unpadded or URL-safe payloads
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, fmt.Errorf("decode base64: %w", err)
		}
	}
	return data, nil
}

// Prepare decodes a data URI and optimizes the image to fit limits.
func Prepare(uri string, limits Limits) (*ImageData, error) {
	data, err := DecodeDataURI(uri)
	if err != nil {
		return nil, err
	}
	return Optimize(data, limits)
}
