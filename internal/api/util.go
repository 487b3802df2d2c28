package api

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/org/bookforge/internal/engine"
	"github.com/org/bookforge/internal/generate"
	"github.com/org/bookforge/internal/identity"
	"github.com/org/bookforge/internal/storage"
	"github.com/org/bookforge/internal/vault"
)

func newUUID() string {
	b := make([]byte, 16)
	rand.Read(b) //nolint:errcheck
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// handleError maps domain errors onto HTTP responses. Vault failures
// stay generic: the response must not reveal whether the password or
// the file was at fault.
func handleError(w http.ResponseWriter, err error) {
	var (
		exhausted *engine.ExhaustedError
		shape     *generate.ResponseShapeError
	)
	switch {
	case errors.Is(err, vault.ErrVault):
		writeError(w, http.StatusUnprocessableEntity, vault.ErrVault.Error())
	case errors.Is(err, identity.ErrNotLoggedIn):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, engine.ErrNoCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &exhausted), errors.As(err, &shape):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
