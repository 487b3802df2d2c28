package provider

import (
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
)

// Pollinations builds image URLs for the public pollinations.ai service.
// No request is made here; the URL itself is the deliverable and the
// reader's browser fetches it.
type Pollinations struct {
	baseURL string
	seed    func() int
}

// PollinationsOption configures a Pollinations builder.
type PollinationsOption func(*Pollinations)

// WithPollinationsSeed injects the seed source. Tests use a fixed one.
func WithPollinationsSeed(seed func() int) PollinationsOption {
	return func(p *Pollinations) { p.seed = seed }
}

// WithPollinationsBaseURL overrides the service endpoint.
func WithPollinationsBaseURL(base string) PollinationsOption {
	return func(p *Pollinations) { p.baseURL = base }
}

// NewPollinations creates a builder with a random seed source.
func NewPollinations(opts ...PollinationsOption) *Pollinations {
	p := &Pollinations{
		baseURL: "https://image.pollinations.ai",
		seed:    func() int { return rand.Intn(10000) },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ImageURL builds the generation URL for prompt. A fresh seed is drawn
// on every call so identical prompts yield distinct images.
func (p *Pollinations) ImageURL(prompt, model string, width, height int) string {
	if model == "" {
		model = "flux"
	}
	q := url.Values{}
	q.Set("width", strconv.Itoa(width))
	q.Set("height", strconv.Itoa(height))
	q.Set("model", model)
	q.Set("nologo", "true")
	q.Set("seed", strconv.Itoa(p.seed()))
	return fmt.Sprintf("%s/prompt/%s?%s", p.baseURL, url.PathEscape(prompt), q.Encode())
}
