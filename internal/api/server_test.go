package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/org/bookforge/internal/engine"
	"github.com/org/bookforge/internal/provider"
	"github.com/org/bookforge/internal/storage"
	"github.com/org/bookforge/pkg/models"
)

// --- In-memory storage backend for tests ---

type memStore struct {
	settings   map[string]string
	profiles   map[string]*models.UserProfile
	books      map[string]*models.Book
	generation []*models.GenerationRecord
	audit      []*models.AuditEntry
}

func newMemStore() *memStore {
	return &memStore{
		settings: map[string]string{},
		profiles: map[string]*models.UserProfile{},
		books:    map[string]*models.Book{},
	}
}

func (m *memStore) GetSetting(ctx context.Context, key string) (string, error) {
	v, ok := m.settings[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (m *memStore) PutSetting(ctx context.Context, key, value string) error {
	m.settings[key] = value
	return nil
}

func (m *memStore) SaveProfile(ctx context.Context, p *models.UserProfile) error {
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *memStore) GetProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) SaveBook(ctx context.Context, b *models.Book) error {
	cp := *b
	m.books[b.ID] = &cp
	return nil
}

func (m *memStore) GetBook(ctx context.Context, id string) (*models.Book, error) {
	b, ok := m.books[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) ListBooks(ctx context.Context, filter storage.BookFilter) ([]*models.Book, error) {
	var books []*models.Book
	for _, b := range m.books {
		if filter.AuthorID != "" && b.AuthorID != filter.AuthorID {
			continue
		}
		if filter.PublicOnly && !b.IsPublic {
			continue
		}
		cp := *b
		books = append(books, &cp)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].CreatedAt > books[j].CreatedAt })
	if filter.Limit > 0 && len(books) > filter.Limit {
		books = books[:filter.Limit]
	}
	return books, nil
}

func (m *memStore) DeleteBook(ctx context.Context, id string) error {
	if _, ok := m.books[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.books, id)
	return nil
}

func (m *memStore) WriteGenerationRecord(ctx context.Context, r *models.GenerationRecord) error {
	m.generation = append(m.generation, r)
	return nil
}

func (m *memStore) QueryGenerationLog(ctx context.Context, filter storage.GenerationFilter) ([]*models.GenerationRecord, error) {
	var out []*models.GenerationRecord
	for _, r := range m.generation {
		if filter.Operation != "" && r.Operation != filter.Operation {
			continue
		}
		if filter.Outcome != "" && r.Outcome != filter.Outcome {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) WriteAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	m.audit = append(m.audit, e)
	return nil
}

func (m *memStore) QueryAuditLog(ctx context.Context, filter storage.AuditFilter) ([]*models.AuditEntry, error) {
	return m.audit, nil
}

func (m *memStore) CountBooks(ctx context.Context) (int64, error) {
	return int64(len(m.books)), nil
}

func (m *memStore) Close() {}

// --- Scriptable provider client ---

type scriptedClient struct {
	text func(credential, model, prompt string) (string, error)
	js   func(credential, model, prompt string) (string, error)
	img  func(credential, model, prompt string) (*provider.ImageData, error)
}

func (c *scriptedClient) GenerateText(ctx context.Context, credential, model, prompt string) (string, error) {
	return c.text(credential, model, prompt)
}

func (c *scriptedClient) GenerateJSON(ctx context.Context, credential, model, prompt string, schema *genai.Schema, temperature float32) (string, error) {
	return c.js(credential, model, prompt)
}

func (c *scriptedClient) GenerateImage(ctx context.Context, credential, model, prompt string) (*provider.ImageData, error) {
	return c.img(credential, model, prompt)
}

func newTestServer(t *testing.T, store *memStore, client provider.Client) *httptest.Server {
	t.Helper()
	srv := NewServer(store, Config{AdminEmail: "admin@example.com"},
		WithProviderClient(client),
		WithPollinations(provider.NewPollinations(provider.WithPollinationsSeed(func() int { return 1 }))),
		WithEngineOptions(engine.WithSleep(func(ctx context.Context, d time.Duration) error { return nil })),
	)
	ts := httptest.NewServer(srv.BuildRouter())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	out.ReadFrom(resp.Body) //nolint:errcheck
	return resp, out.Bytes()
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, newMemStore(), &scriptedClient{})
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/sys/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("parsing body: %v", err)
	}
	if parsed["status"] != "ok" {
		t.Errorf("unexpected health payload: %v", parsed)
	}
}

func TestLoginProfileFlow(t *testing.T) {
	ts := newTestServer(t, newMemStore(), &scriptedClient{})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/identity/login",
		map[string]string{"name": "Ana", "email": "ana@example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/identity/profile", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", resp.StatusCode)
	}
	var profile models.UserProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		t.Fatalf("parsing profile: %v", err)
	}
	if profile.Email != "ana@example.com" || profile.IsAdmin {
		t.Errorf("unexpected profile: %+v", profile)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/v1/identity/logout", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/v1/identity/profile", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("profile after logout: expected 401, got %d", resp.StatusCode)
	}
}

func TestExportImportOverHTTP(t *testing.T) {
	store := newMemStore()
	store.settings[models.SettingAPIKeys] = "k1,k2"
	ts := newTestServer(t, store, &scriptedClient{})

	doJSON(t, http.MethodPost, ts.URL+"/v1/identity/login",
		map[string]string{"name": "Ana Silva", "email": "ana@example.com"})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/identity/export",
		map[string]string{"password": "correct horse"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: expected 200, got %d: %s", resp.StatusCode, body)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "identity_ana_silva.iabooks") {
		t.Errorf("unexpected Content-Disposition: %q", cd)
	}

	// Import into a clean server.
	store2 := newMemStore()
	ts2 := newTestServer(t, store2, &scriptedClient{})
	resp, out := doJSON(t, http.MethodPost, ts2.URL+"/v1/identity/import", map[string]string{
		"password": "correct horse",
		"artifact": base64.StdEncoding.EncodeToString(body),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import: expected 200, got %d: %s", resp.StatusCode, out)
	}
	if store2.settings[models.SettingAPIKeys] != "k1,k2" {
		t.Errorf("credentials not restored: %v", store2.settings)
	}

	// Wrong password maps to 422 with a generic message.
	resp, out = doJSON(t, http.MethodPost, ts2.URL+"/v1/identity/import", map[string]string{
		"password": "wrong",
		"artifact": base64.StdEncoding.EncodeToString(body),
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad password: expected 422, got %d", resp.StatusCode)
	}
	if strings.Contains(string(out), "password or corrupted") == false {
		t.Errorf("expected generic vault error, got %s", out)
	}
}

func TestGeneratePlanEndpoint(t *testing.T) {
	store := newMemStore()
	store.settings[models.SettingAPIKeys] = "k1"
	client := &scriptedClient{
		js: func(credential, model, prompt string) (string, error) {
			return `{"title":"T","description":"D","chapters":[{"title":"One","summary":"s"}]}`, nil
		},
	}
	ts := newTestServer(t, store, client)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/generate/plan", map[string]string{
		"topic": "Go", "type": "ebook", "language": "en",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var plan models.BookPlan
	if err := json.Unmarshal(body, &plan); err != nil {
		t.Fatalf("parsing plan: %v", err)
	}
	if len(plan.Chapters) != 3 {
		t.Errorf("expected branded wrapper around 1 chapter, got %d chapters", len(plan.Chapters))
	}

	// Attempts show up in the generation log.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/sys/generation-log?operation=book_plan", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generation-log: expected 200, got %d", resp.StatusCode)
	}
	var logOut struct {
		Records []models.GenerationRecord `json:"records"`
	}
	if err := json.Unmarshal(body, &logOut); err != nil {
		t.Fatalf("parsing log: %v", err)
	}
	if len(logOut.Records) != 1 || logOut.Records[0].Outcome != "success" {
		t.Errorf("unexpected generation log: %+v", logOut.Records)
	}
}

func TestGenerateWithoutCredentials(t *testing.T) {
	ts := newTestServer(t, newMemStore(), &scriptedClient{
		js: func(credential, model, prompt string) (string, error) {
			t.Error("provider must not be called without credentials")
			return "", nil
		},
	})

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/generate/plan",
		map[string]string{"topic": "Go"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGenerateExhaustionMapsTo502(t *testing.T) {
	store := newMemStore()
	store.settings[models.SettingAPIKeys] = "k1,k2"
	ts := newTestServer(t, store, &scriptedClient{
		text: func(credential, model, prompt string) (string, error) {
			return "", &provider.Error{Kind: provider.KindQuotaExceeded, Message: "quota"}
		},
	})

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/generate/cover-prompt",
		map[string]string{"title": "T", "description": "D"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	// Two models x two keys, every pair tried once.
	if len(store.generation) != 4 {
		t.Errorf("expected 4 logged attempts, got %d", len(store.generation))
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store := newMemStore()
	ts := newTestServer(t, store, &scriptedClient{})

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/v1/settings/"+models.SettingAPIKeys,
		map[string]string{"value": "ka, kb"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put: expected 200, got %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/settings/"+models.SettingAPIKeys, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	var setting map[string]string
	if err := json.Unmarshal(body, &setting); err != nil {
		t.Fatalf("parsing setting: %v", err)
	}
	if setting["value"] != "ka, kb" {
		t.Errorf("unexpected value: %q", setting["value"])
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/v1/settings/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing setting: expected 404, got %d", resp.StatusCode)
	}
}

func TestBooksCRUD(t *testing.T) {
	ts := newTestServer(t, newMemStore(), &scriptedClient{})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/books", map[string]any{
		"title": "Go na Prática", "topic": "Go", "type": "ebook", "isPublic": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var book models.Book
	if err := json.Unmarshal(body, &book); err != nil {
		t.Fatalf("parsing book: %v", err)
	}
	if book.ID == "" || book.CreatedAt == 0 {
		t.Errorf("expected generated id and timestamp: %+v", book)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/v1/books/"+book.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/books?public=true", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var listOut struct {
		Books []models.Book `json:"books"`
	}
	if err := json.Unmarshal(body, &listOut); err != nil {
		t.Fatalf("parsing list: %v", err)
	}
	if len(listOut.Books) != 1 {
		t.Errorf("expected 1 public book, got %d", len(listOut.Books))
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/v1/books/"+book.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/v1/books/"+book.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestRequestIDHeaderAndAudit(t *testing.T) {
	store := newMemStore()
	ts := newTestServer(t, store, &scriptedClient{})

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/v1/sys/health", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if len(store.audit) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(store.audit))
	}
	entry := store.audit[0]
	if entry.Path != "/v1/sys/health" || entry.ResponseCode != http.StatusOK {
		t.Errorf("unexpected audit entry: %+v", entry)
	}
}

func TestGenerationLogHidesFullCredentials(t *testing.T) {
	store := newMemStore()
	store.settings[models.SettingAPIKeys] = "super-secret-credential-abcd"
	ts := newTestServer(t, store, &scriptedClient{
		text: func(credential, model, prompt string) (string, error) {
			return "a reply", nil
		},
	})

	doJSON(t, http.MethodPost, ts.URL+"/v1/generate/chat", map[string]string{
		"roomName": "Sala", "roomTopic": "Go", "message": "oi",
	})

	if len(store.generation) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(store.generation))
	}
	hint := store.generation[0].KeyHint
	if hint != "....abcd" {
		t.Errorf("unexpected key hint %q", hint)
	}
	if strings.Contains(fmt.Sprint(store.generation[0]), "super-secret-credential") {
		t.Error("full credential leaked into the generation log")
	}
}
