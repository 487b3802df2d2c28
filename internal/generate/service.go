// Package generate implements the book-production operations on top of
// the fallback engine: planning, chapter writing, art prompts, covers,
// metadata and chat replies.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/org/bookforge/internal/engine"
	"github.com/org/bookforge/internal/provider"
	"github.com/org/bookforge/pkg/models"
)

// Model preference order for prose and planning. Best model first; the
// engine falls through when it is blocked or out of quota.
var DefaultTextModels = []string{"gemini-2.5-pro-preview", "gemini-2.5-flash"}

const (
	// ChatModel stays pinned to the fast model: chat replies are short
	// and latency-sensitive.
	ChatModel = "gemini-2.5-flash"
	// ImageModel is the only managed model with inline image output.
	ImageModel = "gemini-2.5-flash-image"
)

// ImageProvider selects the image backend for explicit requests.
type ImageProvider string

const (
	ImageProviderGemini ImageProvider = "gemini"
	ImageProviderFlux   ImageProvider = "flux"
	ImageProviderTurbo  ImageProvider = "turbo"
)

// ResponseShapeError means the provider answered but the content did
// not match the expected shape. Retrying the same inputs would
// reproduce it, so the engine is not re-entered.
type ResponseShapeError struct {
	Operation string
	Err       error
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("%s: response has unexpected shape: %v", e.Operation, e.Err)
}

func (e *ResponseShapeError) Unwrap() error { return e.Err }

// Service runs generation operations. Each operation family has its own
// engine because their model lists differ.
type Service struct {
	client       provider.Client
	pollinations *provider.Pollinations
	text         *engine.Engine
	chat         *engine.Engine
	image        *engine.Engine
	log          zerolog.Logger
}

// NewService wires the operation engines over a shared credential
// source. engineOpts apply to every engine (observer, sleep override).
func NewService(client provider.Client, pollinations *provider.Pollinations, credentials engine.CredentialSource, log zerolog.Logger, engineOpts ...engine.Option) *Service {
	return &Service{
		client:       client,
		pollinations: pollinations,
		text:         engine.New(DefaultTextModels, credentials, log, engineOpts...),
		chat:         engine.New([]string{ChatModel}, credentials, log, engineOpts...),
		image:        engine.New([]string{ImageModel}, credentials, log, engineOpts...),
		log:          log,
	}
}

var bookPlanSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title": {
			Type:        genai.TypeString,
			Description: "The main title of the book in the target language.",
		},
		"description": {
			Type:        genai.TypeString,
			Description: "A compelling summary (max 300 chars).",
		},
		"chapters": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":   {Type: genai.TypeString},
					"summary": {Type: genai.TypeString},
				},
				Required: []string{"title", "summary"},
			},
		},
	},
	Required: []string{"title", "description", "chapters"},
}

var metadataSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"tags": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"category": {Type: genai.TypeString},
	},
	Required: []string{"tags", "category"},
}

func sizeStyle(size models.BookSize) (complexity, structure string) {
	switch size {
	case models.BookSizeWorkbook:
		return "concisa, educativa, focada em aprendizado prático.", "3 a 5 módulos fundamentais."
	case models.BookSizeNovel:
		return "profunda, detalhada, literária.", "10 a 12 capítulos detalhados."
	default:
		return "narrativa envolvente, informativa.", "5 a 8 capítulos."
	}
}

// BookPlan generates a structured outline and wraps it with the branded
// preface and closing chapters.
func (s *Service) BookPlan(ctx context.Context, topic string, size models.BookSize, extraContext, language string) (*models.BookPlan, error) {
	complexity, structure := sizeStyle(size)
	prompt := fmt.Sprintf(`Role: World-Class Book Architect & Editor.
Task: Create a bestseller outline for a "%s" about "%s".
Context: "%s".
Language: %s (Ensure title and chapters are in this language).
Style: %s
Structure: %s`, size, topic, extraContext, LanguageName(language), complexity, structure)

	raw, err := engine.Run(ctx, s.text, "book_plan", func(ctx context.Context, model, credential string) (string, error) {
		return s.client.GenerateJSON(ctx, credential, model, prompt, bookPlanSchema, 0.7)
	})
	if err != nil {
		return nil, err
	}

	var plan models.BookPlan
	if err := json.Unmarshal([]byte(CleanJSON(raw)), &plan); err != nil {
		return nil, &ResponseShapeError{Operation: "book_plan", Err: err}
	}

	for i := range plan.Chapters {
		plan.Chapters[i].Title = SanitizeTitle(plan.Chapters[i].Title)
		if plan.Chapters[i].Summary == "" {
			plan.Chapters[i].Summary = "Conteúdo detalhado."
		}
	}
	plan.Chapters = wrapWithBranding(plan.Chapters, language)
	return &plan, nil
}

// BookMetadata generates tags and a category. Metadata is decorative,
// so total failure degrades to defaults instead of surfacing an error.
func (s *Service) BookMetadata(ctx context.Context, title, description, language string) (*models.BookMetadata, error) {
	prompt := fmt.Sprintf(`Task: Generate metadata for book "%s".
Description: "%s"
Language: %s.`, title, description, LanguageName(language))

	raw, err := engine.Run(ctx, s.text, "book_metadata", func(ctx context.Context, model, credential string) (string, error) {
		return s.client.GenerateJSON(ctx, credential, model, prompt, metadataSchema, 0)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("title", title).Msg("metadata generation failed, using defaults")
		return &models.BookMetadata{Tags: []string{"Geral"}, Category: "Outros"}, nil
	}

	var meta models.BookMetadata
	if err := json.Unmarshal([]byte(CleanJSON(raw)), &meta); err != nil {
		s.log.Warn().Err(err).Str("title", title).Msg("metadata response unparsable, using defaults")
		return &models.BookMetadata{Tags: []string{"Geral"}, Category: "Outros"}, nil
	}
	if len(meta.Tags) == 0 {
		meta.Tags = []string{"Geral"}
	}
	if meta.Category == "" {
		meta.Category = "Outros"
	}
	return &meta, nil
}

// CoverPrompt asks for an English art-direction prompt for the cover.
// An empty answer degrades to a generic prompt without burning further
// credentials; a generic cover still renders.
func (s *Service) CoverPrompt(ctx context.Context, title, description string, size models.BookSize) (string, error) {
	fallback := fmt.Sprintf("Book cover for %s", title)
	prompt := fmt.Sprintf(`Role: Award-winning Art Director.
Task: Create a visually stunning, highly detailed image prompt for a book cover.
Book: "%s"
Type: %s
Synopsis: "%s"

Guidelines:
- Use artistic keywords (e.g., cinematic lighting, 8k, masterpiece, photorealistic or stylized).
- Focus on the central theme metaphor.
- OUTPUT: ONLY the English prompt text.`, title, size, description)

	text, err := engine.Run(ctx, s.text, "cover_prompt", func(ctx context.Context, model, credential string) (string, error) {
		text, err := s.client.GenerateText(ctx, credential, model, prompt)
		if provider.KindOf(err) == provider.KindEmptyResponse {
			return fallback, nil
		}
		return text, err
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ChapterContent writes the full HTML body of one chapter.
func (s *Service) ChapterContent(ctx context.Context, bookTitle, chapterTitle, chapterSummary string, size models.BookSize, language string) (string, error) {
	styleGuide := `BESTSELLER MODE ACTIVATED.
- Style: Immersive, engaging, rich in metaphors and sensory details.
- Technique: "Show, don't tell". Don't say it was scary, describe the cold sweat.
- Rhythm: Vary sentence length. Use strong verbs. Avoid repetitive AI patterns.
- Tone: Human, profound, magnetic.
- Formatting: Use elegant HTML (<h2>, <blockquote>, <p>).`
	if size == models.BookSizeWorkbook {
		styleGuide = "Didactic, clear, structured with bullet points and 'Key Takeaways' boxes. Educational tone."
	}

	prompt := fmt.Sprintf(`Role: Elite International Bestselling Author.
Task: Write the full content for chapter: "%s".
Book: "%s"
Context: "%s"
Target Language: %s.

%s

IMPORTANT: Return ONLY the HTML body content (no <html> tags, just the inner content).`,
		SanitizeTitle(chapterTitle), bookTitle, chapterSummary,
		strings.ToUpper(LanguageName(language)), styleGuide)

	html, err := engine.Run(ctx, s.text, "chapter_content", func(ctx context.Context, model, credential string) (string, error) {
		return s.client.GenerateText(ctx, credential, model, prompt)
	})
	if err != nil {
		return "", err
	}
	html = strings.ReplaceAll(html, "```html", "")
	html = strings.ReplaceAll(html, "```", "")
	return strings.TrimSpace(html), nil
}

// Generic illustration prompt used when the model returns nothing for a
// chapter image request.
const defaultChapterImagePrompt = "Abstract artistic illustration"

// ChapterImagePrompt produces a short English illustration prompt for a
// chapter, seeded with the opening of its content. Empty output degrades
// to a generic prompt instead of rotating credentials.
func (s *Service) ChapterImagePrompt(ctx context.Context, chapterTitle, chapterContent string) (string, error) {
	excerpt := chapterContent
	if runes := []rune(excerpt); len(runes) > 200 {
		excerpt = string(runes[:200])
	}
	prompt := fmt.Sprintf(`Role: Editorial Illustrator.
Task: Create a short, artistic English image prompt for chapter "%s".
Excerpt: "%s..."
Style: Digital Art, Cinematic, Evocative.
Output: Only the prompt text.`, SanitizeTitle(chapterTitle), excerpt)

	text, err := engine.Run(ctx, s.text, "chapter_image_prompt", func(ctx context.Context, model, credential string) (string, error) {
		text, err := s.client.GenerateText(ctx, credential, model, prompt)
		if provider.KindOf(err) == provider.KindEmptyResponse {
			return defaultChapterImagePrompt, nil
		}
		return text, err
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ChatResponse generates a short in-room persona reply. The reading
// room must never see a raw failure, so exhaustion degrades to a
// canned acknowledgement.
func (s *Service) ChatResponse(ctx context.Context, roomName, roomTopic, userMessage string, history []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, `Você é um participante ativo e especialista em uma sala de bate-papo literário.
Sala: "%s" (Tópico: %s).
`, roomName, roomTopic)
	if len(history) > 0 {
		b.WriteString("Mensagens recentes:\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "- %s\n", msg)
		}
	}
	fmt.Fprintf(&b, `Mensagem do usuário: "%s"
Seja breve, amigável e interaja diretamente com o usuário.
Sua resposta (curta, máx 2 frases):`, userMessage)

	text, err := engine.Run(ctx, s.chat, "chat_response", func(ctx context.Context, model, credential string) (string, error) {
		return s.client.GenerateText(ctx, credential, model, b.String())
	})
	if err != nil {
		s.log.Warn().Err(err).Str("room", roomName).Msg("chat generation failed, using canned reply")
		return "Interessante ponto de vista!", nil
	}
	return strings.TrimSpace(text), nil
}

// Image generates an image URL with an explicitly chosen backend. The
// managed backend returns a data: URL; the public ones return a hosted
// generation URL.
func (s *Service) Image(ctx context.Context, prompt string, backend ImageProvider, width, height int) (string, error) {
	switch backend {
	case ImageProviderGemini:
		img, err := engine.Run(ctx, s.image, "image", func(ctx context.Context, model, credential string) (*provider.ImageData, error) {
			return s.client.GenerateImage(ctx, credential, model, prompt)
		})
		if err != nil {
			return "", err
		}
		return img.DataURL(), nil
	case ImageProviderTurbo:
		return s.pollinations.ImageURL(prompt, "turbo", width, height), nil
	default:
		return s.pollinations.ImageURL(prompt, "flux", width, height), nil
	}
}

// HybridCover tries the managed image backend first and falls back to
// the public one on any failure. Cover art must always resolve.
func (s *Service) HybridCover(ctx context.Context, prompt string) (string, error) {
	url, err := s.Image(ctx, prompt, ImageProviderGemini, 800, 1200)
	if err != nil {
		s.log.Info().Err(err).Msg("managed cover generation failed, falling back to public backend")
		return s.pollinations.ImageURL(prompt, "flux", 800, 1200), nil
	}
	return url, nil
}
