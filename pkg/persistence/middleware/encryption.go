package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/arbor/pkg/ports"
)

// ErrInvalidKey is returned when an encryption key is not 32 bytes long.
var ErrInvalidKey = errors.New("encryption key must be 32 bytes (AES-256)")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

// sealed is the opaque entry written to the wrapped store.
type sealed struct {
	Encrypted []byte `json:"__encrypted__"`
}

type encryptionMiddleware struct {
	next   ports.EntryStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts entries using AES-GCM.
// Keys, expiry and listing stay visible to the wrapped store; payloads do not.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrInvalidKey
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d: %w", i, ErrInvalidKey)
		}
	}
	return func(next ports.EntryStore) ports.EntryStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Put(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	// 1. Encrypt, binding the ciphertext to its key
	ciphertext, err := encrypt(data, m.config.ActiveKey, []byte(key))
	if err != nil {
		return fmt.Errorf("failed to encrypt entry: %w", err)
	}

	// 2. Wrap in an opaque envelope
	envelope, err := json.Marshal(sealed{Encrypted: ciphertext})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	return m.next.Put(ctx, key, envelope, expiresAt)
}

func (m *encryptionMiddleware) Get(ctx context.Context, key string) ([]byte, error) {
	// 1. Load envelope
	data, err := m.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	// 2. Extract ciphertext. Plain entries are refused.
	var envelope sealed
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Encrypted) == 0 {
		return nil, errors.New("entry is missing encrypted data envelope")
	}

	// 3. Decrypt (Try Active, then Fallback)
	plainText, err := decryptWithRotation(envelope.Encrypted, []byte(key), m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt entry: %w", err)
	}
	return plainText, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *encryptionMiddleware) ClearExpired(ctx context.Context, now time.Time) (int, error) {
	return m.next.ClearExpired(ctx, now)
}

// Helpers

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encrypt(plaintext, key, additional []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, additional), nil
}

func decryptWithRotation(ciphertext, additional, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey, additional); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key, additional); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key, additional []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], additional)
}
