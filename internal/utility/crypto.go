package utility

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	nonceLen = 12 // GCM standard
	keyLen   = 32 // AES-256

	sealPrefix = "v1:"
)

// sealSalt is fixed: the key is derived once per process from an operator
// supplied secret, not per record.
var sealSalt = []byte("pastebin/seal/v1")

// CryptoConfig holds configuration parameters for key derivation.
type CryptoConfig struct {
	ArgonTime    uint32
	ArgonMemory  uint32
	ArgonThreads uint8
}

// DefaultCryptoConfig returns the default production configuration.
func DefaultCryptoConfig() CryptoConfig {
	return CryptoConfig{
		ArgonTime:    1,
		ArgonMemory:  64 * 1024, // 64 MB
		ArgonThreads: 4,
	}
}

// TestCryptoConfig returns a faster configuration suitable for testing.
func TestCryptoConfig() CryptoConfig {
	return CryptoConfig{
		ArgonTime:    1,
		ArgonMemory:  1024, // 1 MB - faster for tests
		ArgonThreads: 4,
	}
}

var (
	cryptoConfig   = DefaultCryptoConfig()
	cryptoConfigMu sync.RWMutex
)

func getCryptoConfig() CryptoConfig {
	cryptoConfigMu.RLock()
	defer cryptoConfigMu.RUnlock()
	return cryptoConfig
}

func setCryptoConfig(cfg CryptoConfig) {
	cryptoConfigMu.Lock()
	defer cryptoConfigMu.Unlock()
	cryptoConfig = cfg
}

// Sealer encrypts snippet records at rest with AES-256-GCM.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an AES key from secret with Argon2id.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("seal key must not be empty")
	}
	cfg := getCryptoConfig()
	key := argon2.IDKey([]byte(secret), sealSalt, cfg.ArgonTime, cfg.ArgonMemory, cfg.ArgonThreads, keyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &Sealer{aead: gcm}, nil
}

// Seal returns "v1:" + base64(nonce|ciphertext).
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	ct := s.aead.Seal(nil, nonce, plaintext, nil)

	raw := make([]byte, 0, len(nonce)+len(ct))
	raw = append(raw, nonce...)
	raw = append(raw, ct...)

	out := sealPrefix + base64.StdEncoding.EncodeToString(raw)
	return []byte(out), nil
}

func (s *Sealer) Open(blob []byte) ([]byte, error) {
	str := string(blob)
	if !strings.HasPrefix(str, sealPrefix) {
		return nil, errors.New("unsupported format")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(str, sealPrefix))
	if err != nil {
		return nil, fmt.Errorf("b64: %w", err)
	}
	if len(raw) < nonceLen+s.aead.Overhead() {
		return nil, errors.New("blob too short")
	}
	pt, err := s.aead.Open(nil, raw[:nonceLen], raw[nonceLen:], nil)
	if err != nil {
		return nil, errors.New("auth failed")
	}
	return pt, nil
}
