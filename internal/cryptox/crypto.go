// Package cryptox implements the field-level cipher used to protect vault
// contents at rest. Each sensitive value is sealed with AES-GCM under a
// process-wide master key and stored as a self-describing text envelope:
//
//	v1:<hex nonce>:<hex tag>:<hex ciphertext>
//
// The envelope carries everything decryption needs besides the master key,
// so ciphertext columns stay ordinary text. Decoding is fail-closed: any
// malformed or tampered envelope yields ErrIntegrity, never the raw input.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// envelopeVersion tags the current envelope layout. Bump it together
	// with any change to the segment order or encoding.
	envelopeVersion = "v1"

	nonceSize = 12
	keySize   = 32

	envelopeSegments = 4
)

// ErrIntegrity is returned when an envelope is malformed or fails
// authentication. Callers must treat it as fatal and never substitute the
// stored ciphertext for the plaintext.
var ErrIntegrity = errors.New("cryptox: envelope integrity check failed")

// DeriveMasterKey stretches the configured secret into a 256-bit AES key
// using argon2id. Called once at startup; the result is cached for the
// process lifetime inside Cipher.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, keySize)
}

// Cipher seals and opens individual field values. It is safe for concurrent
// use: the key is immutable after construction and every call generates its
// own nonce.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher over the given 32-byte master key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("cryptox: key must be %d bytes, got %d", keySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// EncryptField seals plaintext into an envelope string. Empty input is
// returned unchanged so absent fields stay absent and carry no ciphertext
// overhead.
func (c *Cipher) EncryptField(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)

	// Seal appends the tag after the ciphertext; the envelope stores them
	// as separate segments.
	tagStart := len(sealed) - c.aead.Overhead()
	body := sealed[:tagStart]
	tag := sealed[tagStart:]

	return strings.Join([]string{
		envelopeVersion,
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(body),
	}, ":"), nil
}

// DecryptField opens an envelope produced by EncryptField. Empty input is
// returned unchanged. Any structural defect (wrong segment count, unknown
// version, bad hex, wrong nonce length) or authentication failure yields
// ErrIntegrity.
func (c *Cipher) DecryptField(envelope string) (string, error) {
	if envelope == "" {
		return "", nil
	}

	parts := strings.Split(envelope, ":")
	if len(parts) != envelopeSegments || parts[0] != envelopeVersion {
		return "", ErrIntegrity
	}

	nonce, err := hex.DecodeString(parts[1])
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return "", ErrIntegrity
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil || len(tag) != c.aead.Overhead() {
		return "", ErrIntegrity
	}
	body, err := hex.DecodeString(parts[3])
	if err != nil {
		return "", ErrIntegrity
	}

	plaintext, err := c.aead.Open(nil, nonce, append(body, tag...), nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plaintext), nil
}
