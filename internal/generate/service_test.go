package generate

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/org/bookforge/internal/engine"
	"github.com/org/bookforge/internal/provider"
	"github.com/org/bookforge/pkg/models"
)

// fakeClient scripts provider responses per operation style.
type fakeClient struct {
	textFn  func(model, credential, prompt string) (string, error)
	jsonFn  func(model, credential, prompt string) (string, error)
	imageFn func(model, credential, prompt string) (*provider.ImageData, error)
}

func (f *fakeClient) GenerateText(ctx context.Context, credential, model, prompt string) (string, error) {
	return f.textFn(model, credential, prompt)
}

func (f *fakeClient) GenerateJSON(ctx context.Context, credential, model, prompt string, schema *genai.Schema, temperature float32) (string, error) {
	return f.jsonFn(model, credential, prompt)
}

func (f *fakeClient) GenerateImage(ctx context.Context, credential, model, prompt string) (*provider.ImageData, error) {
	return f.imageFn(model, credential, prompt)
}

func newTestService(client provider.Client) *Service {
	pollinations := provider.NewPollinations(provider.WithPollinationsSeed(func() int { return 7 }))
	return NewService(client, pollinations,
		engine.StaticCredentials([]string{"key-alpha", "key-beta"}),
		zerolog.Nop(),
		engine.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }))
}

func TestBookPlanWrapsWithBranding(t *testing.T) {
	client := &fakeClient{
		jsonFn: func(model, credential, prompt string) (string, error) {
			return "```json\n" + `{
				"title": "Go na Prática",
				"description": "Um guia.",
				"chapters": [
					{"title": "Capítulo 1: Fundamentos", "summary": "Base"},
					{"title": "Concorrência", "summary": ""}
				]
			}` + "\n```", nil
		},
	}
	s := newTestService(client)

	plan, err := s.BookPlan(context.Background(), "Go", models.BookSizeEbook, "", "pt")
	require.NoError(t, err)

	assert.Equal(t, "Go na Prática", plan.Title)
	require.Len(t, plan.Chapters, 4)
	assert.Equal(t, "Prefácio IABOOKS", plan.Chapters[0].Title)
	assert.NotEmpty(t, plan.Chapters[0].Content)
	assert.Equal(t, "Fundamentos", plan.Chapters[1].Title, "chapter prefix should be sanitized")
	assert.Equal(t, "Conteúdo detalhado.", plan.Chapters[2].Summary, "empty summary gets a default")
	assert.Equal(t, "Legado Digital", plan.Chapters[3].Title)
}

func TestBookPlanEnglishBranding(t *testing.T) {
	client := &fakeClient{
		jsonFn: func(model, credential, prompt string) (string, error) {
			return `{"title":"T","description":"D","chapters":[{"title":"One","summary":"s"}]}`, nil
		},
	}
	s := newTestService(client)

	plan, err := s.BookPlan(context.Background(), "topic", models.BookSizeEbook, "", "en")
	require.NoError(t, err)
	require.Len(t, plan.Chapters, 3)
	assert.Equal(t, "IABOOKS Preface", plan.Chapters[0].Title)
	assert.Equal(t, "Digital Legacy", plan.Chapters[2].Title)
}

func TestBookPlanShapeErrorNotRetried(t *testing.T) {
	calls := 0
	client := &fakeClient{
		jsonFn: func(model, credential, prompt string) (string, error) {
			calls++
			return "this is not json {broken", nil
		},
	}
	s := newTestService(client)

	_, err := s.BookPlan(context.Background(), "Go", models.BookSizeEbook, "", "pt")
	var shapeErr *ResponseShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, 1, calls, "malformed JSON from the model must not trigger rotation")
}

func TestBookPlanRotatesOnQuota(t *testing.T) {
	var used []string
	client := &fakeClient{
		jsonFn: func(model, credential, prompt string) (string, error) {
			used = append(used, credential)
			if credential == "key-alpha" {
				return "", &provider.Error{Kind: provider.KindQuotaExceeded, Message: "quota"}
			}
			return `{"title":"T","description":"D","chapters":[]}`, nil
		},
	}
	s := newTestService(client)

	plan, err := s.BookPlan(context.Background(), "Go", models.BookSizeEbook, "", "pt")
	require.NoError(t, err)
	assert.Equal(t, []string{"key-alpha", "key-beta"}, used)
	// Even an empty plan gets the branded wrapper.
	assert.Len(t, plan.Chapters, 2)
}

func TestBookMetadataDefaultsOnFailure(t *testing.T) {
	client := &fakeClient{
		jsonFn: func(model, credential, prompt string) (string, error) {
			return "", &provider.Error{Kind: provider.KindAuthInvalid, Message: "bad key"}
		},
	}
	s := newTestService(client)

	meta, err := s.BookMetadata(context.Background(), "T", "D", "pt")
	require.NoError(t, err)
	assert.Equal(t, []string{"Geral"}, meta.Tags)
	assert.Equal(t, "Outros", meta.Category)
}

func TestBookMetadataParsesResponse(t *testing.T) {
	client := &fakeClient{
		jsonFn: func(model, credential, prompt string) (string, error) {
			return `{"tags":["Tecnologia","Programação"],"category":"Educação"}`, nil
		},
	}
	s := newTestService(client)

	meta, err := s.BookMetadata(context.Background(), "T", "D", "pt")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tecnologia", "Programação"}, meta.Tags)
	assert.Equal(t, "Educação", meta.Category)
}

func TestChapterContentStripsFences(t *testing.T) {
	client := &fakeClient{
		textFn: func(model, credential, prompt string) (string, error) {
			return "```html\n<h2>Era uma vez</h2>\n```", nil
		},
	}
	s := newTestService(client)

	html, err := s.ChapterContent(context.Background(), "Livro", "Cap", "resumo", models.BookSizeEbook, "pt")
	require.NoError(t, err)
	assert.Equal(t, "<h2>Era uma vez</h2>", html)
}

func TestChapterContentWorkbookStyle(t *testing.T) {
	var seenPrompt string
	client := &fakeClient{
		textFn: func(model, credential, prompt string) (string, error) {
			seenPrompt = prompt
			return "<p>ok</p>", nil
		},
	}
	s := newTestService(client)

	_, err := s.ChapterContent(context.Background(), "Livro", "Cap", "resumo", models.BookSizeWorkbook, "pt")
	require.NoError(t, err)
	assert.Contains(t, seenPrompt, "Didactic")
	assert.NotContains(t, seenPrompt, "BESTSELLER MODE")
}

func TestChatResponsePinnedModelAndCannedFallback(t *testing.T) {
	var seenModels []string
	client := &fakeClient{
		textFn: func(model, credential, prompt string) (string, error) {
			seenModels = append(seenModels, model)
			return "", &provider.Error{Kind: provider.KindQuotaExceeded, Message: "quota"}
		},
	}
	s := newTestService(client)

	reply, err := s.ChatResponse(context.Background(), "Sala", "Ficção", "Oi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Interessante ponto de vista!", reply)
	for _, m := range seenModels {
		assert.Equal(t, ChatModel, m, "chat never falls through to other models")
	}
	assert.Len(t, seenModels, 2, "chat still rotates the credential pool")
}

func TestImageGeminiReturnsDataURL(t *testing.T) {
	client := &fakeClient{
		imageFn: func(model, credential, prompt string) (*provider.ImageData, error) {
			assert.Equal(t, ImageModel, model)
			return &provider.ImageData{MIMEType: "image/png", Data: []byte{1, 2, 3}}, nil
		},
	}
	s := newTestService(client)

	url, err := s.Image(context.Background(), "a castle", ImageProviderGemini, 800, 1200)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AQID", url)
}

func TestImagePublicBackends(t *testing.T) {
	s := newTestService(&fakeClient{})

	url, err := s.Image(context.Background(), "a castle", ImageProviderTurbo, 640, 480)
	require.NoError(t, err)
	assert.Contains(t, url, "model=turbo")

	url, err = s.Image(context.Background(), "a castle", ImageProviderFlux, 640, 480)
	require.NoError(t, err)
	assert.Contains(t, url, "model=flux")
}

func TestHybridCoverFallsBackToPublic(t *testing.T) {
	client := &fakeClient{
		imageFn: func(model, credential, prompt string) (*provider.ImageData, error) {
			return nil, &provider.Error{Kind: provider.KindQuotaExceeded, Message: "quota"}
		},
	}
	s := newTestService(client)

	url, err := s.HybridCover(context.Background(), "a castle")
	require.NoError(t, err)
	assert.True(t, strings.Contains(url, "image.pollinations.ai"), "got %q", url)
	assert.Contains(t, url, "model=flux")
	assert.Contains(t, url, "width=800")
	assert.Contains(t, url, "height=1200")
}

func TestHybridCoverPrefersManaged(t *testing.T) {
	client := &fakeClient{
		imageFn: func(model, credential, prompt string) (*provider.ImageData, error) {
			return &provider.ImageData{MIMEType: "image/jpeg", Data: []byte{9}}, nil
		},
	}
	s := newTestService(client)

	url, err := s.HybridCover(context.Background(), "a castle")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"), "got %q", url)
}

func TestCoverPromptFallsBackOnEmptyOutput(t *testing.T) {
	calls := 0
	client := &fakeClient{
		textFn: func(model, credential, prompt string) (string, error) {
			calls++
			return "", &provider.Error{Kind: provider.KindEmptyResponse, Message: "model returned no text"}
		},
	}
	s := newTestService(client)

	got, err := s.CoverPrompt(context.Background(), "Mar Sem Fim", "D", models.BookSizeEbook)
	require.NoError(t, err)
	assert.Equal(t, "Book cover for Mar Sem Fim", got)
	assert.Equal(t, 1, calls, "an empty answer must not rotate credentials")
}

func TestCoverPromptStillRotatesOnQuota(t *testing.T) {
	var used []string
	client := &fakeClient{
		textFn: func(model, credential, prompt string) (string, error) {
			used = append(used, credential)
			if credential == "key-alpha" {
				return "", &provider.Error{Kind: provider.KindQuotaExceeded, Message: "quota"}
			}
			return "golden lighthouse, cinematic", nil
		},
	}
	s := newTestService(client)

	got, err := s.CoverPrompt(context.Background(), "T", "D", models.BookSizeEbook)
	require.NoError(t, err)
	assert.Equal(t, "golden lighthouse, cinematic", got)
	assert.Equal(t, []string{"key-alpha", "key-beta"}, used)
}

func TestChapterImagePromptFallsBackOnEmptyOutput(t *testing.T) {
	calls := 0
	client := &fakeClient{
		textFn: func(model, credential, prompt string) (string, error) {
			calls++
			return "", &provider.Error{Kind: provider.KindEmptyResponse, Message: "model returned no text"}
		},
	}
	s := newTestService(client)

	got, err := s.ChapterImagePrompt(context.Background(), "Cap", "conteúdo")
	require.NoError(t, err)
	assert.Equal(t, "Abstract artistic illustration", got)
	assert.Equal(t, 1, calls, "an empty answer must not rotate credentials")
}

func TestChapterContentRotatesOnEmptyOutput(t *testing.T) {
	calls := 0
	client := &fakeClient{
		textFn: func(model, credential, prompt string) (string, error) {
			calls++
			if calls == 1 {
				return "", &provider.Error{Kind: provider.KindEmptyResponse, Message: "model returned no text"}
			}
			return "<p>texto</p>", nil
		},
	}
	s := newTestService(client)

	html, err := s.ChapterContent(context.Background(), "Livro", "Cap", "resumo", models.BookSizeEbook, "pt")
	require.NoError(t, err)
	assert.Equal(t, "<p>texto</p>", html)
	assert.Equal(t, 2, calls, "chapter prose has no usable fallback, empty output retries")
}

func TestCoverPromptTrimsOutput(t *testing.T) {
	client := &fakeClient{
		textFn: func(model, credential, prompt string) (string, error) {
			return "  cinematic book cover, 8k  \n", nil
		},
	}
	s := newTestService(client)

	got, err := s.CoverPrompt(context.Background(), "T", "D", models.BookSizeEbook)
	require.NoError(t, err)
	assert.Equal(t, "cinematic book cover, 8k", got)
}
