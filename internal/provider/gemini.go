package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Gemini calls the Google GenAI API. A fresh client is built per call
// because the credential changes between attempts.
type Gemini struct{}

// NewGemini creates the managed-provider adapter.
func NewGemini() *Gemini {
	return &Gemini{}
}

func (g *Gemini) newClient(ctx context.Context, credential string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: credential,
	})
	if err != nil {
		return nil, &Error{Kind: KindAuthInvalid, Message: fmt.Sprintf("creating client: %v", err)}
	}
	return client, nil
}

// GenerateText runs a plain text completion.
func (g *Gemini) GenerateText(ctx context.Context, credential, model, prompt string) (string, error) {
	client, err := g.newClient(ctx, credential)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, model,
		genai.Text(prompt), nil)
	if err != nil {
		return "", classify(err)
	}
	if blocked := blockedError(resp); blocked != nil {
		return "", blocked
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &Error{Kind: KindEmptyResponse, Message: "model returned no text"}
	}
	return text, nil
}

// GenerateJSON runs a completion constrained to a JSON response schema.
// The returned string is the raw model output; the caller parses it.
func (g *Gemini) GenerateJSON(ctx context.Context, credential, model, prompt string, schema *genai.Schema, temperature float32) (string, error) {
	client, err := g.newClient(ctx, credential)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
			Temperature:      genai.Ptr(temperature),
		})
	if err != nil {
		return "", classify(err)
	}
	if blocked := blockedError(resp); blocked != nil {
		return "", blocked
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &Error{Kind: KindEmptyResponse, Message: "model returned no JSON"}
	}
	return text, nil
}

// GenerateImage asks an image-capable model for inline image data.
func (g *Gemini) GenerateImage(ctx context.Context, credential, model, prompt string) (*ImageData, error) {
	client, err := g.newClient(ctx, credential)
	if err != nil {
		return nil, err
	}

	resp, err := client.Models.GenerateContent(ctx, model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		})
	if err != nil {
		return nil, classify(err)
	}
	if blocked := blockedError(resp); blocked != nil {
		return nil, blocked
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return &ImageData{MIMEType: mime, Data: part.InlineData.Data}, nil
			}
		}
	}
	return nil, &Error{Kind: KindEmptyResponse, Message: "model returned no image data"}
}

// blockedError maps a safety-blocked response to a content-block error.
func blockedError(resp *genai.GenerateContentResponse) *Error {
	if resp == nil {
		return &Error{Kind: KindEmptyResponse, Message: "nil response"}
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return &Error{
			Kind:    KindContentBlocked,
			Message: fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason),
		}
	}
	for _, cand := range resp.Candidates {
		if cand.FinishReason == genai.FinishReasonSafety ||
			cand.FinishReason == genai.FinishReasonProhibitedContent {
			return &Error{
				Kind:    KindContentBlocked,
				Message: fmt.Sprintf("candidate blocked: %s", cand.FinishReason),
			}
		}
	}
	return nil
}

// classify turns a raw SDK error into a tagged provider Error. Status
// codes are authoritative; the message sniff is a fallback for errors
// the SDK surfaces without structure.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return &Error{Kind: KindQuotaExceeded, Status: apiErr.Code, Message: apiErr.Message}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Kind: KindAuthInvalid, Status: apiErr.Code, Message: apiErr.Message}
		case http.StatusServiceUnavailable:
			return &Error{Kind: KindOverloaded, Status: apiErr.Code, Message: apiErr.Message}
		}
		switch apiErr.Status {
		case "RESOURCE_EXHAUSTED":
			return &Error{Kind: KindQuotaExceeded, Status: apiErr.Code, Message: apiErr.Message}
		case "PERMISSION_DENIED", "UNAUTHENTICATED":
			return &Error{Kind: KindAuthInvalid, Status: apiErr.Code, Message: apiErr.Message}
		case "UNAVAILABLE":
			return &Error{Kind: KindOverloaded, Status: apiErr.Code, Message: apiErr.Message}
		}
		return &Error{Kind: sniffKind(apiErr.Message), Status: apiErr.Code, Message: apiErr.Message}
	}
	return &Error{Kind: sniffKind(err.Error()), Message: err.Error()}
}

func sniffKind(msg string) ErrorKind {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "429"), strings.Contains(m, "quota"), strings.Contains(m, "resource_exhausted"):
		return KindQuotaExceeded
	case strings.Contains(m, "api_key"), strings.Contains(m, "api key"), strings.Contains(m, "403"), strings.Contains(m, "permission_denied"):
		return KindAuthInvalid
	case strings.Contains(m, "503"), strings.Contains(m, "overloaded"), strings.Contains(m, "unavailable"):
		return KindOverloaded
	case strings.Contains(m, "safety"), strings.Contains(m, "blocked"):
		return KindContentBlocked
	default:
		return KindUnclassified
	}
}
