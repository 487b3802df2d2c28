package engine

import (
	"context"
	"strings"
)

// CredentialSource supplies the ordered credential pool for a run. The
// pool is read once at the start of a run; rotation within the run uses
// that snapshot.
type CredentialSource interface {
	Credentials(ctx context.Context) ([]string, error)
}

// StaticCredentials is a fixed pool, mainly for tests and CLI use.
type StaticCredentials []string

func (s StaticCredentials) Credentials(ctx context.Context) ([]string, error) {
	return s, nil
}

// ParseCredentials splits a comma-separated credential list, trimming
// whitespace and dropping empties. Order is preserved.
func ParseCredentials(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// KeyHint returns the loggable tail of a credential. Full credentials
// never reach logs or storage.
func KeyHint(credential string) string {
	if len(credential) <= 4 {
		return "...." + credential
	}
	return "...." + credential[len(credential)-4:]
}
