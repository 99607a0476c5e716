// Package crypto provides encryption for stored datasource credentials.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

var (
	// ErrInvalidKey is returned when the encryption key is empty.
	ErrInvalidKey = errors.New("invalid encryption key: must not be empty")
	// ErrDecryptionFailed is returned when decryption fails due to invalid
	// ciphertext or a wrong key. Fatal for the record, not for the process.
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or wrong key")
)

// CredentialEncryptor provides AES-256-GCM encryption for datasource
// credential material. Authenticated encryption makes corrupt or
// foreign-key ciphertext fail loudly instead of yielding garbage
// credentials.
type CredentialEncryptor struct {
	gcm cipher.AEAD
}

// NewCredentialEncryptor creates an encryptor from a key string. The key can
// be a base64-encoded 32-byte key (openssl rand -base64 32) or any
// passphrase, which is hashed to 32 bytes with SHA-256.
func NewCredentialEncryptor(keyInput string) (*CredentialEncryptor, error) {
	if keyInput == "" {
		return nil, ErrInvalidKey
	}

	var key []byte
	decoded, err := base64.StdEncoding.DecodeString(keyInput)
	if err == nil && len(decoded) == 32 {
		key = decoded
	} else {
		hash := sha256.Sum256([]byte(keyInput))
		key = hash[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &CredentialEncryptor{gcm: gcm}, nil
}

// Encrypt encrypts plaintext and returns base64(nonce || ciphertext || tag).
// Empty strings are returned as-is.
func (e *CredentialEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts base64(nonce || ciphertext || tag) and returns plaintext.
// Empty strings are returned as-is.
func (e *CredentialEncryptor) Decrypt(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrDecryptionFailed)
	}

	nonceSize := e.gcm.NonceSize()
	if len(data) < nonceSize+e.gcm.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}

	return string(plaintext), nil
}

// EncryptRecord replaces the record's secret material (password, URI) with
// ciphertext in place. Called immediately before every write to the store so
// a record is never persisted in decrypted form.
func (e *CredentialEncryptor) EncryptRecord(record *models.DatasourceRecord) error {
	password, err := e.Encrypt(record.Password)
	if err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}
	uri, err := e.Encrypt(record.URI)
	if err != nil {
		return fmt.Errorf("encrypt uri: %w", err)
	}
	record.Password = password
	record.URI = uri
	return nil
}

// DecryptRecord is the inverse of EncryptRecord, called immediately after
// every read from the store and before any use of the record to open a
// connection.
func (e *CredentialEncryptor) DecryptRecord(record *models.DatasourceRecord) error {
	password, err := e.Decrypt(record.Password)
	if err != nil {
		return fmt.Errorf("decrypt password: %w", err)
	}
	uri, err := e.Decrypt(record.URI)
	if err != nil {
		return fmt.Errorf("decrypt uri: %w", err)
	}
	record.Password = password
	record.URI = uri
	return nil
}
