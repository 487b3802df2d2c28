// Package provider adapts external generation services behind a closed
// error taxonomy so the retry engine never inspects raw SDK errors.
package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrorKind classifies a failed generation attempt. The engine's retry
// decisions operate exclusively on this closed set.
type ErrorKind int

const (
	KindUnclassified ErrorKind = iota
	KindQuotaExceeded
	KindAuthInvalid
	KindOverloaded
	KindContentBlocked
	KindEmptyResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindAuthInvalid:
		return "auth_invalid"
	case KindOverloaded:
		return "overloaded"
	case KindContentBlocked:
		return "content_blocked"
	case KindEmptyResponse:
		return "empty_response"
	default:
		return "unclassified"
	}
}

// Error is the tagged failure the adapter layer produces from raw
// provider errors.
type Error struct {
	Kind    ErrorKind
	Status  int // HTTP status when known, 0 otherwise
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider error (%s, status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
}

// KindOf extracts the classification from an error chain. Anything that
// is not a provider Error is treated as unclassified.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnclassified
}

// ImageData is inline binary image output.
type ImageData struct {
	MIMEType string
	Data     []byte
}

// DataURL renders the image as a data: URL embeddable in a reader view.
func (d *ImageData) DataURL() string {
	return "data:" + d.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// Client is the managed-provider surface the engine operations call.
// Implementations must translate every failure into *Error.
type Client interface {
	GenerateText(ctx context.Context, credential, model, prompt string) (string, error)
	GenerateJSON(ctx context.Context, credential, model, prompt string, schema *genai.Schema, temperature float32) (string, error)
	GenerateImage(ctx context.Context, credential, model, prompt string) (*ImageData, error)
}
