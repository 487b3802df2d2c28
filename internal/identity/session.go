// Package identity manages the logged-in profile and its portable
// encrypted export (the identity wallet).
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/org/bookforge/internal/storage"
	"github.com/org/bookforge/internal/vault"
	"github.com/org/bookforge/pkg/models"
)

// Platform tag stamped into exported artifacts.
const platformTag = "bookforge"

// FileExtension is the canonical wallet file extension.
const FileExtension = ".iabooks"

// Artifact versions this build can import. Fail closed on anything else.
var supportedVersions = map[int]bool{1: true}

// ErrNotLoggedIn is returned by operations that need an active profile.
var ErrNotLoggedIn = errors.New("no active profile")

// Store is the slice of persistence the session needs.
type Store interface {
	SaveProfile(ctx context.Context, profile *models.UserProfile) error
	GetProfile(ctx context.Context, id string) (*models.UserProfile, error)
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Session holds the active profile. One per server; guarded because
// handlers run concurrently.
type Session struct {
	mu         sync.RWMutex
	profile    *models.UserProfile
	store      Store
	codec      *vault.Codec
	adminEmail string
	now        func() time.Time
	log        zerolog.Logger
}

// NewSession creates a logged-out session. adminEmail marks which login
// gets administrative rights; empty disables admin detection.
func NewSession(store Store, codec *vault.Codec, adminEmail string, log zerolog.Logger) *Session {
	return &Session{
		store:      store,
		codec:      codec,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		now:        time.Now,
		log:        log,
	}
}

// Login activates a profile for name/email. A previously saved profile
// for the same email is restored; otherwise a fresh one is created.
func (s *Session) Login(ctx context.Context, name, email string) (*models.UserProfile, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return nil, errors.New("name and email are required")
	}

	profile := &models.UserProfile{
		ID:              email,
		Name:            name,
		Email:           email,
		Favorites:       []string{},
		ReadingProgress: []models.ReadingProgress{},
		CreatedBooks:    []string{},
		IsAdmin:         s.adminEmail != "" && strings.ToLower(strings.TrimSpace(email)) == s.adminEmail,
		AvatarURL: fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=f59e0b&color=fff",
			url.QueryEscape(name)),
	}

	if stored, err := s.store.GetProfile(ctx, email); err == nil {
		// Keep saved reading state but refresh identity fields.
		stored.Name = profile.Name
		stored.IsAdmin = profile.IsAdmin
		stored.AvatarURL = profile.AvatarURL
		profile = stored
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	if err := s.store.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	s.log.Info().Str("email", email).Bool("admin", profile.IsAdmin).Msg("profile logged in")
	return cloneProfile(profile), nil
}

// Logout drops the active profile. Stored state is untouched.
func (s *Session) Logout() {
	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()
}

// Current returns a copy of the active profile.
func (s *Session) Current() (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil, ErrNotLoggedIn
	}
	return cloneProfile(s.profile), nil
}

// ToggleFavorite adds or removes a book from the active profile's
// favorites and persists the result.
func (s *Session) ToggleFavorite(ctx context.Context, bookID string) (*models.UserProfile, error) {
	return s.update(ctx, func(p *models.UserProfile) {
		for i, id := range p.Favorites {
			if id == bookID {
				p.Favorites = append(p.Favorites[:i], p.Favorites[i+1:]...)
				return
			}
		}
		p.Favorites = append(p.Favorites, bookID)
	})
}

// UpdateProgress records the reader's position in a book, replacing any
// previous entry for that book.
func (s *Session) UpdateProgress(ctx context.Context, bookID, chapterID string, percentage float64) (*models.UserProfile, error) {
	return s.update(ctx, func(p *models.UserProfile) {
		entry := models.ReadingProgress{
			BookID:        bookID,
			LastChapterID: chapterID,
			Percentage:    percentage,
			LastReadAt:    s.now().UnixMilli(),
		}
		kept := p.ReadingProgress[:0]
		for _, rp := range p.ReadingProgress {
			if rp.BookID != bookID {
				kept = append(kept, rp)
			}
		}
		p.ReadingProgress = append(kept, entry)
	})
}

func (s *Session) update(ctx context.Context, mutate func(*models.UserProfile)) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil, ErrNotLoggedIn
	}
	mutate(s.profile)
	if err := s.store.SaveProfile(ctx, s.profile); err != nil {
		return nil, err
	}
	return cloneProfile(s.profile), nil
}

// Export seals the active profile and settings into a portable wallet
// file. Returns the encrypted bytes and the suggested filename.
func (s *Session) Export(ctx context.Context, password string) ([]byte, string, error) {
	s.mu.RLock()
	profile := s.profile
	s.mu.RUnlock()
	if profile == nil {
		return nil, "", ErrNotLoggedIn
	}

	settings := models.VaultSettings{Theme: "dark"}
	if v, err := s.store.GetSetting(ctx, models.SettingAPIKeys); err == nil {
		settings.APIKey = v
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, "", err
	}
	if v, err := s.store.GetSetting(ctx, models.SettingTheme); err == nil {
		settings.Theme = v
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, "", err
	}

	payload := models.VaultPayload{
		Meta: models.VaultMeta{
			Version:    1,
			ExportedAt: s.now().UnixMilli(),
			Platform:   platformTag,
		},
		Profile:  *cloneProfile(profile),
		Settings: settings,
	}

	raw, err := s.codec.EncryptToJSON(payload, password)
	if err != nil {
		return nil, "", err
	}
	return raw, WalletFilename(profile.Name), nil
}

// Import decrypts a wallet file, restores the profile and settings, and
// makes the restored profile active.
func (s *Session) Import(ctx context.Context, raw []byte, password string) (*models.UserProfile, error) {
	var payload models.VaultPayload
	if err := s.codec.Decrypt(raw, password, &payload); err != nil {
		return nil, err
	}
	if !supportedVersions[payload.Meta.Version] {
		// Unknown format versions are indistinguishable from corruption
		// to the caller.
		return nil, vault.ErrVault
	}

	profile := payload.Profile
	if err := s.store.SaveProfile(ctx, &profile); err != nil {
		return nil, err
	}
	if payload.Settings.APIKey != "" {
		if err := s.store.PutSetting(ctx, models.SettingAPIKeys, payload.Settings.APIKey); err != nil {
			return nil, err
		}
	}
	if payload.Settings.Theme != "" {
		if err := s.store.PutSetting(ctx, models.SettingTheme, payload.Settings.Theme); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.profile = &profile
	s.mu.Unlock()
	s.log.Info().Str("email", profile.Email).Msg("identity imported")
	return cloneProfile(&profile), nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// WalletFilename derives the export filename from the profile name,
// e.g. "Ana Silva" -> "identity_ana_silva.iabooks".
func WalletFilename(name string) string {
	slug := strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "_"))
	if slug == "" {
		slug = "profile"
	}
	return "identity_" + slug + FileExtension
}

func cloneProfile(p *models.UserProfile) *models.UserProfile {
	c := *p
	c.Favorites = append([]string(nil), p.Favorites...)
	c.ReadingProgress = append([]models.ReadingProgress(nil), p.ReadingProgress...)
	c.CreatedBooks = append([]string(nil), p.CreatedBooks...)
	return &c
}
