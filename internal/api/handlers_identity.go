package api

import (
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoginHandler activates a profile.
// POST /v1/identity/login
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profile, err := s.session.Login(r.Context(), req.Name, req.Email)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// LogoutHandler drops the active profile.
// POST /v1/identity/logout
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	s.session.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// ProfileHandler returns the active profile.
// GET /v1/identity/profile
func (s *Server) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := s.session.Current()
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type exportRequest struct {
	Password string `json:"password"`
}

// ExportHandler seals the active profile into a downloadable wallet file.
// POST /v1/identity/export
func (s *Server) ExportHandler(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	raw, filename, err := s.session.Export(r.Context(), req.Password)
	if err != nil {
		handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(raw) //nolint:errcheck
}

type importRequest struct {
	Password string `json:"password"`
	// Artifact is the wallet file content, base64-encoded for transport.
	Artifact string `json:"artifact"`
}

// ImportHandler restores a profile from a wallet file.
// POST /v1/identity/import
func (s *Server) ImportHandler(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.Artifact)
	if err != nil {
		writeError(w, http.StatusBadRequest, "artifact must be base64")
		return
	}
	profile, err := s.session.Import(r.Context(), raw, req.Password)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ToggleFavoriteHandler flips a book's favorite state on the active profile.
// POST /v1/identity/favorites/{bookID}
func (s *Server) ToggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")
	profile, err := s.session.ToggleFavorite(r.Context(), bookID)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type progressRequest struct {
	BookID     string  `json:"bookId"`
	ChapterID  string  `json:"chapterId"`
	Percentage float64 `json:"percentage"`
}

// ProgressHandler records reading position.
// POST /v1/identity/progress
func (s *Server) ProgressHandler(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BookID == "" {
		writeError(w, http.StatusBadRequest, "bookId is required")
		return
	}
	profile, err := s.session.UpdateProgress(r.Context(), req.BookID, req.ChapterID, req.Percentage)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// SettingGetHandler returns a stored setting value.
// GET /v1/settings/{key}
func (s *Server) SettingGetHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := s.store.GetSetting(r.Context(), key)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

type settingPutRequest struct {
	Value string `json:"value"`
}

// SettingPutHandler stores a setting value. Credential edits take
// effect on the next generation call.
// PUT /v1/settings/{key}
func (s *Server) SettingPutHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req settingPutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.PutSetting(r.Context(), key, req.Value); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": req.Value})
}
