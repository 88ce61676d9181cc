package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize  = 16
	ivSize    = 16
	keySize   = 32
	tagSize   = 16
	separator = ":"

	// masterIterations stretches the configured master secret once at
	// construction; saltIterations binds each ciphertext to its own salt.
	masterIterations = 100_000
	saltIterations   = 10_000
)

var masterSalt = []byte("sendlens-envelope-v1")

var (
	// ErrMalformedEnvelope indicates the envelope does not have the expected
	// salt:iv:tag:ciphertext shape.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrIntegrity indicates the auth tag did not verify; the ciphertext or
	// tag was corrupted or tampered with.
	ErrIntegrity = errors.New("envelope integrity check failed")
)

// Envelope encrypts and decrypts secrets at rest with AES-256-GCM. The base
// key is derived once from the master secret; each operation derives a
// per-ciphertext key from a fresh random salt. Safe for concurrent use.
type Envelope struct {
	baseKey []byte
}

// NewEnvelope derives the base key from the master secret. The master secret
// must come from process configuration; an empty value is rejected here so a
// misconfigured deployment fails at startup, not on first decrypt.
func NewEnvelope(masterSecret string) (*Envelope, error) {
	if masterSecret == "" {
		return nil, errors.New("master secret is required")
	}

	return &Envelope{
		baseKey: pbkdf2.Key([]byte(masterSecret), masterSalt, masterIterations, keySize, sha256.New),
	}, nil
}

// Encrypt seals plaintext into a salt:iv:tag:ciphertext envelope, each
// segment base64-encoded.
func (e *Envelope) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	aead, err := e.aead(salt)
	if err != nil {
		return "", err
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	segments := []string{
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}

	return strings.Join(segments, separator), nil
}

// Decrypt opens an envelope produced by Encrypt. It fails closed: a malformed
// envelope returns ErrMalformedEnvelope, a tag mismatch returns ErrIntegrity,
// and partial plaintext is never returned.
func (e *Envelope) Decrypt(envelope string) (string, error) {
	segments := strings.Split(envelope, separator)
	if len(segments) != 4 {
		return "", ErrMalformedEnvelope
	}

	decoded := make([][]byte, 4)
	for i, segment := range segments {
		raw, err := base64.StdEncoding.DecodeString(segment)
		if err != nil {
			return "", ErrMalformedEnvelope
		}
		decoded[i] = raw
	}

	salt, iv, tag, ciphertext := decoded[0], decoded[1], decoded[2], decoded[3]
	if len(salt) != saltSize || len(iv) != ivSize || len(tag) != tagSize {
		return "", ErrMalformedEnvelope
	}

	aead, err := e.aead(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrIntegrity
	}

	return string(plaintext), nil
}

func (e *Envelope) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.baseKey, salt, saltIterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return aead, nil
}
