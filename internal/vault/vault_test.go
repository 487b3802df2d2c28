package vault

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/org/bookforge/pkg/models"
)

func samplePayload() models.VaultPayload {
	return models.VaultPayload{
		Meta: models.VaultMeta{Version: 1, ExportedAt: 1700000000000, Platform: "bookforge"},
		Profile: models.UserProfile{
			ID:        "ana@example.com",
			Name:      "Ana",
			Email:     "ana@example.com",
			Favorites: []string{"book-1"},
		},
		Settings: models.VaultSettings{APIKey: "k1,k2", Theme: "dark"},
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := New()
	raw, err := c.EncryptToJSON(samplePayload(), "correct horse")
	if err != nil {
		t.Fatalf("EncryptToJSON failed: %v", err)
	}

	var got models.VaultPayload
	if err := c.Decrypt(raw, "correct horse", &got); err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	want := samplePayload()
	if got.Meta != want.Meta {
		t.Errorf("meta mismatch: got %+v want %+v", got.Meta, want.Meta)
	}
	if got.Profile.Email != want.Profile.Email || got.Profile.Name != want.Profile.Name {
		t.Errorf("profile mismatch: got %+v", got.Profile)
	}
	if got.Settings != want.Settings {
		t.Errorf("settings mismatch: got %+v want %+v", got.Settings, want.Settings)
	}
}

func TestWrongPassword(t *testing.T) {
	c := New()
	raw, err := c.EncryptToJSON(samplePayload(), "correct horse")
	if err != nil {
		t.Fatalf("EncryptToJSON failed: %v", err)
	}

	var got models.VaultPayload
	err = c.Decrypt(raw, "wrong password", &got)
	if !errors.Is(err, ErrVault) {
		t.Fatalf("expected ErrVault, got %v", err)
	}
}

func TestEmptyPassword(t *testing.T) {
	c := New()
	if _, err := c.Encrypt(samplePayload(), ""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestEncryptNonDeterministic(t *testing.T) {
	c := New()
	a1, err := c.Encrypt(samplePayload(), "pw")
	if err != nil {
		t.Fatalf("first Encrypt failed: %v", err)
	}
	a2, err := c.Encrypt(samplePayload(), "pw")
	if err != nil {
		t.Fatalf("second Encrypt failed: %v", err)
	}
	if a1.Salt == a2.Salt {
		t.Error("salt should be fresh on every call")
	}
	if a1.IV == a2.IV {
		t.Error("iv should be fresh on every call")
	}
	if a1.Data == a2.Data {
		t.Error("ciphertext should differ between calls")
	}
}

func TestTamperDetection(t *testing.T) {
	c := New()
	raw, err := c.EncryptToJSON(samplePayload(), "pw")
	if err != nil {
		t.Fatalf("EncryptToJSON failed: %v", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		t.Fatalf("unmarshaling artifact: %v", err)
	}

	flipHex := func(s string) string {
		b, _ := hex.DecodeString(s)
		b[0] ^= 0x01
		return hex.EncodeToString(b)
	}

	cases := map[string]Artifact{
		"salt": {Salt: flipHex(artifact.Salt), IV: artifact.IV, Data: artifact.Data},
		"iv":   {Salt: artifact.Salt, IV: flipHex(artifact.IV), Data: artifact.Data},
	}
	data, _ := base64.StdEncoding.DecodeString(artifact.Data)
	data[0] ^= 0x01
	cases["data"] = Artifact{Salt: artifact.Salt, IV: artifact.IV, Data: base64.StdEncoding.EncodeToString(data)}

	for name, tampered := range cases {
		enc, _ := json.Marshal(tampered)
		var got models.VaultPayload
		if err := c.Decrypt(enc, "pw", &got); !errors.Is(err, ErrVault) {
			t.Errorf("%s tamper: expected ErrVault, got %v", name, err)
		}
	}
}

func TestMalformedArtifact(t *testing.T) {
	c := New()
	var got models.VaultPayload
	for _, raw := range []string{
		"not json",
		`{"salt":"zz","iv":"","data":""}`,
		`{"salt":"00112233445566778899aabbccddeeff","iv":"00","data":"AAAA"}`,
		`{"iv":"000102030405060708090a0b","data":"AAAA"}`,
	} {
		if err := c.Decrypt([]byte(raw), "pw", &got); !errors.Is(err, ErrVault) {
			t.Errorf("malformed %q: expected ErrVault, got %v", raw, err)
		}
	}
}

func TestArtifactFormat(t *testing.T) {
	// Fixed random source pins the salt/iv encoding.
	fixed := func(n int) ([]byte, error) {
		return bytes.Repeat([]byte{0xab}, n), nil
	}
	c := NewWithRandom(fixed)

	raw, err := c.EncryptToJSON(samplePayload(), "correct horse")
	if err != nil {
		t.Fatalf("EncryptToJSON failed: %v", err)
	}

	var obj map[string]string
	if err := json.Unmarshal(raw, &obj); err != nil {
		t.Fatalf("artifact is not a JSON object: %v", err)
	}
	if len(obj) != 3 {
		t.Errorf("artifact should have exactly keys salt, iv, data; got %v", obj)
	}
	if obj["salt"] != "abababababababababababababababab" {
		t.Errorf("unexpected salt encoding: %s", obj["salt"])
	}
	if obj["iv"] != "abababababababababababab" {
		t.Errorf("unexpected iv encoding: %s", obj["iv"])
	}
	if _, err := base64.StdEncoding.DecodeString(obj["data"]); err != nil {
		t.Errorf("data is not valid base64: %v", err)
	}

	var got models.VaultPayload
	if err := c.Decrypt(raw, "correct horse", &got); err != nil {
		t.Fatalf("round trip with fixed randomness failed: %v", err)
	}
}
