package secret

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	AlgorithmSHA256  = "sha256"
	AlgorithmBLAKE2b = "blake2b"
)

// Hasher derives the stored digest of a plaintext secret.
type Hasher interface {
	Hash(plaintext string) string
	Algorithm() string
}

// SHA256 hashes with SHA-256 and hex-encodes the sum.
type SHA256 struct{}

func (SHA256) Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func (SHA256) Algorithm() string { return AlgorithmSHA256 }

// BLAKE2b hashes with unkeyed BLAKE2b-256.
type BLAKE2b struct{}

func (BLAKE2b) Hash(plaintext string) string {
	sum := blake2b.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func (BLAKE2b) Algorithm() string { return AlgorithmBLAKE2b }

// NewHasher resolves an algorithm name. An empty name selects SHA-256.
func NewHasher(algorithm string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmSHA256:
		return SHA256{}, nil
	case AlgorithmBLAKE2b:
		return BLAKE2b{}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
}
