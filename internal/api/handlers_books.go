package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/org/bookforge/internal/storage"
	"github.com/org/bookforge/pkg/models"
)

// BookListHandler lists stored books.
// GET /v1/books?author=&public=&limit=&offset=
func (s *Server) BookListHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.BookFilter{
		AuthorID:   q.Get("author"),
		PublicOnly: q.Get("public") == "true",
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	books, err := s.store.ListBooks(r.Context(), filter)
	if err != nil {
		handleError(w, err)
		return
	}
	if books == nil {
		books = []*models.Book{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

// BookSaveHandler creates or updates a book.
// POST /v1/books
func (s *Server) BookSaveHandler(w http.ResponseWriter, r *http.Request) {
	var book models.Book
	if err := decodeJSON(r, &book); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if book.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if book.ID == "" {
		book.ID = newUUID()
	}
	if book.CreatedAt == 0 {
		book.CreatedAt = time.Now().UnixMilli()
	}
	if err := s.store.SaveBook(r.Context(), &book); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &book)
}

// BookGetHandler fetches one book.
// GET /v1/books/{id}
func (s *Server) BookGetHandler(w http.ResponseWriter, r *http.Request) {
	book, err := s.store.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// BookDeleteHandler removes a book.
// DELETE /v1/books/{id}
func (s *Server) BookDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBook(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
