package api

import (
	"net/http"

	"github.com/org/bookforge/internal/generate"
	"github.com/org/bookforge/pkg/models"
)

type planRequest struct {
	Topic        string          `json:"topic"`
	Type         models.BookSize `json:"type"`
	ExtraContext string          `json:"extraContext"`
	Language     string          `json:"language"`
}

// GeneratePlanHandler produces a structured book outline.
// POST /v1/generate/plan
func (s *Server) GeneratePlanHandler(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	if req.Type == "" {
		req.Type = models.BookSizeEbook
	}
	plan, err := s.generator.BookPlan(r.Context(), req.Topic, req.Type, req.ExtraContext, req.Language)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type metadataRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

// GenerateMetadataHandler produces tags and a category.
// POST /v1/generate/metadata
func (s *Server) GenerateMetadataHandler(w http.ResponseWriter, r *http.Request) {
	var req metadataRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	meta, err := s.generator.BookMetadata(r.Context(), req.Title, req.Description, req.Language)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

type coverPromptRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Type        models.BookSize `json:"type"`
}

// GenerateCoverPromptHandler produces an art-direction prompt for the cover.
// POST /v1/generate/cover-prompt
func (s *Server) GenerateCoverPromptHandler(w http.ResponseWriter, r *http.Request) {
	var req coverPromptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prompt, err := s.generator.CoverPrompt(r.Context(), req.Title, req.Description, req.Type)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

type chapterRequest struct {
	BookTitle      string          `json:"bookTitle"`
	ChapterTitle   string          `json:"chapterTitle"`
	ChapterSummary string          `json:"chapterSummary"`
	Type           models.BookSize `json:"type"`
	Language       string          `json:"language"`
}

// GenerateChapterHandler writes one chapter's HTML content.
// POST /v1/generate/chapter
func (s *Server) GenerateChapterHandler(w http.ResponseWriter, r *http.Request) {
	var req chapterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	content, err := s.generator.ChapterContent(r.Context(), req.BookTitle, req.ChapterTitle, req.ChapterSummary, req.Type, req.Language)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

type chapterImagePromptRequest struct {
	ChapterTitle   string `json:"chapterTitle"`
	ChapterContent string `json:"chapterContent"`
}

// GenerateChapterImagePromptHandler produces an illustration prompt.
// POST /v1/generate/chapter-image-prompt
func (s *Server) GenerateChapterImagePromptHandler(w http.ResponseWriter, r *http.Request) {
	var req chapterImagePromptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prompt, err := s.generator.ChapterImagePrompt(r.Context(), req.ChapterTitle, req.ChapterContent)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

type chatRequest struct {
	RoomName  string   `json:"roomName"`
	RoomTopic string   `json:"roomTopic"`
	Message   string   `json:"message"`
	History   []string `json:"history"`
}

// GenerateChatHandler produces a short reading-room reply.
// POST /v1/generate/chat
func (s *Server) GenerateChatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, err := s.generator.ChatResponse(r.Context(), req.RoomName, req.RoomTopic, req.Message, req.History)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

type imageRequest struct {
	Prompt   string                 `json:"prompt"`
	Provider generate.ImageProvider `json:"provider"`
	Width    int                    `json:"width"`
	Height   int                    `json:"height"`
}

// GenerateImageHandler generates an image with an explicit backend.
// POST /v1/generate/image
func (s *Server) GenerateImageHandler(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if req.Width == 0 {
		req.Width = 800
	}
	if req.Height == 0 {
		req.Height = 1200
	}
	url, err := s.generator.Image(r.Context(), req.Prompt, req.Provider, req.Width, req.Height)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

type coverRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateCoverHandler generates cover art with automatic fallback to
// the public backend.
// POST /v1/generate/cover
func (s *Server) GenerateCoverHandler(w http.ResponseWriter, r *http.Request) {
	var req coverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	url, err := s.generator.HybridCover(r.Context(), req.Prompt)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
