package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLen    = 16
	nonceLen   = 12
	keyLen     = 32 // AES-256
	iterations = 100000
)

// ErrVault is returned for every decryption failure: wrong password,
// corrupted or tampered artifact, malformed structure. The cause is
// deliberately not distinguished.
var ErrVault = errors.New("wrong password or corrupted vault file")

// Artifact is the portable encrypted unit. It is written as a single
// JSON object with exactly these three keys.
type Artifact struct {
	Salt string `json:"salt"` // hex
	IV   string `json:"iv"`   // hex
	Data string `json:"data"` // base64
}

// RandomSource supplies cryptographic random bytes. Injectable so tests
// can fix salts and nonces.
type RandomSource func(n int) ([]byte, error)

func defaultRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}
	return b, nil
}

// Codec encrypts and decrypts identity vault artifacts with a
// password-derived key. Stateless; every call is independent.
type Codec struct {
	random RandomSource
}

// New creates a Codec backed by the system CSPRNG.
func New() *Codec {
	return &Codec{random: defaultRandom}
}

// NewWithRandom creates a Codec with an injected random source.
func NewWithRandom(r RandomSource) *Codec {
	return &Codec{random: r}
}

// deriveKey stretches the password into an AES-256 key. Deterministic
// for a given (password, salt) pair so decryption can rebuild the key.
func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)
}

// Encrypt serializes payload to JSON and seals it under a key derived
// from password. A fresh salt and nonce are generated on every call, so
// repeated exports of identical data are not correlatable. Pure
// computation; the caller handles persistence.
func (c *Codec) Encrypt(payload any, password string) (*Artifact, error) {
	if password == "" {
		return nil, errors.New("password must not be empty")
	}

	salt, err := c.random(saltLen)
	if err != nil {
		return nil, err
	}
	nonce, err := c.random(nonceLen)
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serializing vault payload: %w", err)
	}

	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	return &Artifact{
		Salt: hex.EncodeToString(salt),
		IV:   hex.EncodeToString(nonce),
		Data: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// EncryptToJSON is Encrypt followed by marshaling the artifact itself,
// yielding the exact bytes of a portable vault file.
func (c *Codec) EncryptToJSON(payload any, password string) ([]byte, error) {
	artifact, err := c.Encrypt(payload, password)
	if err != nil {
		return nil, err
	}
	return json.Marshal(artifact)
}

// Decrypt parses a vault file, re-derives the key from password and the
// embedded salt, and unmarshals the decrypted JSON into dst. Any
// failure (malformed structure, bad encoding, authentication-tag
// mismatch, unparsable plaintext) is reported as ErrVault.
func (c *Codec) Decrypt(raw []byte, password string, dst any) error {
	var artifact Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return ErrVault
	}

	salt, err := hex.DecodeString(artifact.Salt)
	if err != nil || len(salt) != saltLen {
		return ErrVault
	}
	nonce, err := hex.DecodeString(artifact.IV)
	if err != nil || len(nonce) != nonceLen {
		return ErrVault
	}
	ciphertext, err := base64.StdEncoding.DecodeString(artifact.Data)
	if err != nil {
		return ErrVault
	}

	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return ErrVault
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return ErrVault
	}

	if err := json.Unmarshal(plaintext, dst); err != nil {
		return ErrVault
	}
	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}
