package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// sealedPrefix versions the envelope so the key can be rotated later.
const sealedPrefix = "v1."

// AESEncryptionService implements ports.EncryptionService with AES-256-GCM.
// It seals KYC document references at rest.
type AESEncryptionService struct {
	aead cipher.AEAD
	aad  []byte
}

// NewAESEncryptionService builds the cipher from a 64-character hex key.
// Ciphertexts are bound to purpose and will not open under another purpose.
func NewAESEncryptionService(hexKey, purpose string) (*AESEncryptionService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding AES key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("AES key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &AESEncryptionService{aead: aead, aad: []byte(purpose)}, nil
}

// Encrypt returns "v1." + base64url(nonce || ciphertext).
func (s *AESEncryptionService) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), s.aad)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (s *AESEncryptionService) Decrypt(value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, sealedPrefix)
	if !ok {
		return "", fmt.Errorf("unknown envelope version")
	}
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return "", fmt.Errorf("ciphertext too short")
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], s.aad)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	return string(plaintext), nil
}
