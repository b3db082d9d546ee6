// Package encryption seals serialized session documents before they leave the
// process, so conversation history is never stored in clear text in Redis.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// KeySize is the length of a session encryption key in bytes.
const KeySize = 32

// Encryptor seals and opens session documents. The sealed form is a base64
// string so it can be stored as a plain Redis value.
type Encryptor interface {
	Encrypt(document []byte) (string, error)
	Decrypt(sealed string) ([]byte, error)
}

// AESEncryptor seals session documents with AES-256-GCM.
type AESEncryptor struct {
	gcm cipher.AEAD
}

// NewAESEncryptor builds an encryptor from SECRETS_ENCRYPTION_KEY, which may be
// given raw or base64-encoded.
func NewAESEncryptor(key string) (*AESEncryptor, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		raw = []byte(key)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("session encryption key must be %d bytes, got %d", KeySize, len(raw))
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("session cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("session cipher mode: %w", err)
	}
	return &AESEncryptor{gcm: gcm}, nil
}

// Encrypt seals a session document. The random nonce is prepended to the
// ciphertext.
func (e *AESEncryptor) Encrypt(document []byte) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("session nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(e.gcm.Seal(nonce, nonce, document, nil)), nil
}

// Decrypt opens a sealed session document. A tampered value or one sealed under
// another key fails authentication.
func (e *AESEncryptor) Decrypt(sealed string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("sealed session is not base64: %w", err)
	}

	n := e.gcm.NonceSize()
	if len(data) < n {
		return nil, fmt.Errorf("sealed session ciphertext too short")
	}

	document, err := e.gcm.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("session document failed authentication: %w", err)
	}
	return document, nil
}

// GenerateKey returns a fresh base64-encoded key suitable for
// SECRETS_ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("session key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// NoOpEncryptor stores session documents unencrypted, base64 only. It is
// selected when SECRETS_ENCRYPTION_KEY is empty, which main logs as a warning.
type NoOpEncryptor struct{}

func NewNoOpEncryptor() *NoOpEncryptor {
	return &NoOpEncryptor{}
}

func (e *NoOpEncryptor) Encrypt(document []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(document), nil
}

func (e *NoOpEncryptor) Decrypt(sealed string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(sealed)
}
