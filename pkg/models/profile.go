package models

// ReadingProgress tracks how far a reader got in one book.
type ReadingProgress struct {
	BookID        string  `json:"bookId"`
	LastChapterID string  `json:"lastChapterId"`
	Percentage    float64 `json:"percentage"`
	LastReadAt    int64   `json:"lastReadAt"`
}

// UserProfile is the identity record serialized into the vault artifact.
type UserProfile struct {
	ID              string            `json:"id"` // email or UUID
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	Bio             string            `json:"bio,omitempty"`
	AvatarURL       string            `json:"avatarUrl,omitempty"`
	Favorites       []string          `json:"favorites"`
	ReadingProgress []ReadingProgress `json:"readingProgress"`
	CreatedBooks    []string          `json:"createdBooks"`
	IsAdmin         bool              `json:"isAdmin,omitempty"`
}

// VaultMeta carries the artifact format version and provenance.
type VaultMeta struct {
	Version    int    `json:"version"`
	ExportedAt int64  `json:"exportedAt"`
	Platform   string `json:"platform"`
}

// VaultSettings is the optional secrets/preferences bundle inside the vault.
type VaultSettings struct {
	APIKey string `json:"apiKey,omitempty"`
	Theme  string `json:"theme,omitempty"`
}

// VaultPayload is the plaintext structure encrypted inside an identity artifact.
type VaultPayload struct {
	Meta     VaultMeta     `json:"meta"`
	Profile  UserProfile   `json:"profile"`
	Settings VaultSettings `json:"settings"`
}

// Well-known settings keys in persistent storage.
const (
	SettingAPIKeys = "gemini_api_keys"
	SettingTheme   = "theme"
)
