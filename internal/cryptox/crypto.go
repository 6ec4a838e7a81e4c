// Package cryptox implements the crypto-at-rest layer: every persisted text
// field is encrypted independently with AES-256-CBC and PKCS#7 padding, using
// a fresh random IV per call. The stored value is a self-describing JSON
// bundle {"iv": ..., "ciphertext": ...} with base64-encoded parts, so each
// field is decryptable without external state beyond the shared key.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dsavelev/dialogvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// Bundle is the on-disk representation of one encrypted field.
type Bundle struct {
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
}

// Cipher encrypts and decrypts text fields with a process-wide symmetric key.
// Construct it once at startup and pass it by reference into every component
// that needs it.
type Cipher struct {
	key []byte
}

// NewCipher builds a Cipher from a raw 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length %d, want %d", len(key), KeySize)
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Cipher{key: k}, nil
}

// KeyFromBase64 decodes a base64-encoded 32-byte key, the format used in
// configuration.
func KeyFromBase64(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length %d, want %d", len(key), KeySize)
	}
	return key, nil
}

// GenerateKey returns a fresh random 32-byte key. A key generated this way
// is process-local: anything encrypted with it becomes unrecoverable after
// a restart unless the key is exported and configured.
func GenerateKey() []byte {
	return common.GenerateRandByteArray(KeySize)
}

// DeriveKey derives a 32-byte AES key from a passphrase and salt using
// argon2id, so operators can configure a passphrase instead of raw key
// material. Same inputs always produce the same key.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// Encrypt encrypts plaintext with AES-256-CBC and returns the JSON bundle
// string that callers persist. A new random IV is generated per call, so
// encrypting the same plaintext twice yields different bundles.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	bundle := Bundle{
		IV:         base64.StdEncoding.EncodeToString(iv),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
	}
	out, err := json.Marshal(bundle)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Decrypt reverses Encrypt. Any failure (malformed bundle, truncated
// ciphertext, padding mismatch, wrong key) is reported as
// common.ErrDecryption; the caller decides how to degrade.
func (c *Cipher) Decrypt(data string) (string, error) {
	var bundle Bundle
	if err := json.Unmarshal([]byte(data), &bundle); err != nil {
		return "", fmt.Errorf("%w: malformed bundle: %v", common.ErrDecryption, err)
	}

	iv, err := base64.StdEncoding.DecodeString(bundle.IV)
	if err != nil {
		return "", fmt.Errorf("%w: malformed iv", common.ErrDecryption)
	}
	ct, err := base64.StdEncoding.DecodeString(bundle.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", common.ErrDecryption)
	}
	if len(iv) != aes.BlockSize || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: invalid block sizes", common.ErrDecryption)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)

	unpadded, err := pkcs7Unpad(pt, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding byte %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
