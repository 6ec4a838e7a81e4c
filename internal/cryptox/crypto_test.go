package cryptox

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dsavelev/dialogvault/internal/common"
)

func keyToBase64(k []byte) string {
	return base64.StdEncoding.EncodeToString(k)
}

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher(bytes.Repeat([]byte{0x42}, KeySize))
	if err != nil {
		t.Fatalf("NewCipher error: %v", err)
	}
	return c
}

func TestNewCipher_RejectsBadKeyLength(t *testing.T) {
	if _, err := NewCipher([]byte("short")); err == nil {
		t.Fatalf("expected error for short key")
	}
	if _, err := NewCipher(bytes.Repeat([]byte{1}, 33)); err == nil {
		t.Fatalf("expected error for long key")
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	samples := []string{
		"",
		"a",
		"hello world",
		"привет, как дела?",
		"emoji 🤖 and newline\nand tab\t",
		strings.Repeat("0123456789abcdef", 16), // exact block multiples
		strings.Repeat("x", 1000),
	}

	for _, sample := range samples {
		ct, err := c.Encrypt(sample)
		if err != nil {
			t.Fatalf("Encrypt(%q) error: %v", sample, err)
		}
		got, err := c.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt error for %q: %v", sample, err)
		}
		if got != sample {
			t.Fatalf("round trip mismatch: got %q want %q", got, sample)
		}
	}
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	c := newTestCipher(t)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		ct, err := c.Encrypt("same plaintext")
		if err != nil {
			t.Fatalf("Encrypt error: %v", err)
		}
		var b Bundle
		if err := json.Unmarshal([]byte(ct), &b); err != nil {
			t.Fatalf("bundle is not valid JSON: %v", err)
		}
		if _, dup := seen[b.IV]; dup {
			t.Fatalf("IV repeated across calls: %s", b.IV)
		}
		seen[b.IV] = struct{}{}
	}
}

func TestDecrypt_Failures(t *testing.T) {
	c := newTestCipher(t)

	valid, err := c.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}

	var b Bundle
	if err := json.Unmarshal([]byte(valid), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	tests := []struct {
		name string
		data string
	}{
		{"not json", "garbage"},
		{"bad iv base64", `{"iv":"!!!","ciphertext":"` + b.Ciphertext + `"}`},
		{"bad ciphertext base64", `{"iv":"` + b.IV + `","ciphertext":"!!!"}`},
		{"empty ciphertext", `{"iv":"` + b.IV + `","ciphertext":""}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.Decrypt(tc.data); !errors.Is(err, common.ErrDecryption) {
				t.Fatalf("want ErrDecryption, got %v", err)
			}
		})
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	c1 := newTestCipher(t)
	c2, err := NewCipher(bytes.Repeat([]byte{0x24}, KeySize))
	if err != nil {
		t.Fatalf("NewCipher error: %v", err)
	}

	ct, err := c1.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}

	// CBC with a wrong key almost always fails PKCS#7 validation; when it
	// does not, the plaintext still must not match.
	got, err := c2.Decrypt(ct)
	if err == nil && got == "secret" {
		t.Fatalf("decryption with wrong key returned original plaintext")
	}
	if err != nil && !errors.Is(err, common.ErrDecryption) {
		t.Fatalf("want ErrDecryption, got %v", err)
	}
}

func TestKeyFromBase64(t *testing.T) {
	key := GenerateKey()
	encoded := keyToBase64(key)

	got, err := KeyFromBase64(encoded)
	if err != nil {
		t.Fatalf("KeyFromBase64 error: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatalf("decoded key differs from original")
	}

	if _, err := KeyFromBase64("not-base64!!"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
	if _, err := KeyFromBase64("c2hvcnQ="); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestDeriveKey_DeterministicAndSaltSensitive(t *testing.T) {
	pass := []byte("correct horse battery staple")

	k1 := DeriveKey(pass, []byte("salt-1"))
	k2 := DeriveKey(pass, []byte("salt-1"))
	k3 := DeriveKey(pass, []byte("salt-2"))

	if !bytes.Equal(k1, k2) {
		t.Fatalf("same inputs produced different keys")
	}
	if bytes.Equal(k1, k3) {
		t.Fatalf("different salts produced the same key")
	}
	if len(k1) != KeySize {
		t.Fatalf("derived key length %d, want %d", len(k1), KeySize)
	}
}

func TestPKCS7Unpad_Rejects(t *testing.T) {
	if _, err := pkcs7Unpad([]byte{}, 16); err == nil {
		t.Fatalf("expected error for empty input")
	}
	if _, err := pkcs7Unpad(bytes.Repeat([]byte{0}, 16), 16); err == nil {
		t.Fatalf("expected error for zero padding byte")
	}
	block := bytes.Repeat([]byte{1}, 15)
	block = append(block, 2) // claims 2 padding bytes but last-1 is 1
	if _, err := pkcs7Unpad(block, 16); err == nil {
		t.Fatalf("expected error for inconsistent padding")
	}
}
