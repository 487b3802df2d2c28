package models

// BookSize selects the depth and chapter count of a generated book.
type BookSize string

const (
	BookSizeWorkbook BookSize = "apostila"
	BookSizeEbook    BookSize = "ebook"
	BookSizeNovel    BookSize = "livro"
)

// Chapter is one unit of a book, generated in stages (plan, content, art).
type Chapter struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Content     string `json:"content,omitempty"`
	ImagePrompt string `json:"imagePrompt,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	HasError    bool   `json:"hasError,omitempty"`
}

// BookPlan is the structured outline returned by the planning operation.
type BookPlan struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Chapters    []Chapter `json:"chapters"`
}

// BookMetadata is the tags/category bundle for a finished book.
type BookMetadata struct {
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

// Book is a stored, possibly partially generated book.
type Book struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Author           string    `json:"author"`
	Topic            string    `json:"topic"`
	Type             BookSize  `json:"type"`
	Description      string    `json:"description"`
	CoverImagePrompt string    `json:"coverImagePrompt,omitempty"`
	CoverURL         string    `json:"coverUrl,omitempty"`
	Chapters         []Chapter `json:"chapters"`
	Status           string    `json:"status"`
	CreatedAt        int64     `json:"createdAt"`
	IsPublic         bool      `json:"isPublic"`
	Tags             []string  `json:"tags,omitempty"`
	Category         string    `json:"category,omitempty"`
	Language         string    `json:"language,omitempty"`
	AuthorID         string    `json:"authorId,omitempty"`
}
