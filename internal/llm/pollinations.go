package llm

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	. "github.com/roelfdiedericks/floragate/internal/logging"
)

const (
	defaultPollinationsURL = "https://image.pollinations.ai"
	pollinationsSniffBytes = 3072
)

// PollinationsAdapter generates images through Pollinations' URL API.
// The image URL is the result; it is fetched once to confirm the service
// actually produced an image.
type PollinationsAdapter struct {
	id      string
	baseURL string
	size    int
	client  *http.Client
	seed    func() int
}

// NewPollinationsAdapter creates an adapter from a descriptor.
func NewPollinationsAdapter(d Descriptor) *PollinationsAdapter {
	baseURL := strings.TrimSuffix(d.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultPollinationsURL
	}
	return &PollinationsAdapter{
		id:      d.ID,
		baseURL: baseURL,
		size:    1024,
		client:  &http.Client{},
		seed:    func() int { return rand.IntN(1_000_000) },
	}
}

// ImageURL builds the generation URL for a prompt.
func (a *PollinationsAdapter) ImageURL(prompt, model string, seed int) string {
	q := url.Values{}
	q.Set("width", strconv.Itoa(a.size))
	q.Set("height", strconv.Itoa(a.size))
	q.Set("seed", strconv.Itoa(seed))
	q.Set("nologo", "true")
	if model != "" {
		q.Set("model", model)
	}
	return a.baseURL + "/prompt/" + url.PathEscape(prompt) + "?" + q.Encode()
}

// Invoke generates one image.
func (a *PollinationsAdapter) Invoke(ctx context.Context, p *Prompt, model string, cred Credential, cap Capability) Outcome {
	if cap != CapabilityImage {
		return Fatal(ErrorTypeModelUnsupported, fmt.Errorf("pollinations: only image generation is supported"))
	}
	prompt := strings.TrimSpace(p.Current().Text)
	if prompt == "" {
		return Fatal(ErrorTypeModelUnsupported, fmt.Errorf("pollinations: empty prompt"))
	}

	imageURL := a.ImageURL(prompt, model, a.seed())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Fatal(ErrorTypeModelUnsupported, err)
	}
	if cred.Key != "" {
		req.Header.Set("Authorization", "Bearer "+cred.Key)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return Classify(err)
	}
	defer resp.Body.Close()

	head, err := io.ReadAll(io.LimitReader(resp.Body, pollinationsSniffBytes))
	if err != nil {
		return Classify(err)
	}
	if resp.StatusCode != http.StatusOK {
		return Classify(&HTTPError{StatusCode: resp.StatusCode, Body: string(head)})
	}

	mime := mimetype.Detect(head)
	if !strings.HasPrefix(mime.String(), "image/") {
		L_debug("pollinations: response is not an image", "provider", a.id, "mime", mime.String())
		return Retryable(ErrorTypeParse, fmt.Errorf("pollinations returned %s", mime.String()))
	}
	return ImageSuccess(imageURL)
}
