package secret

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strings"

	"github.com/hashicorp/go-secure-stdlib/base62"
)

const (
	// CodeAlphabet omits characters that are easy to misread (0/O, 1/I/L).
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	DefaultCodeLength  = 8
	DefaultTokenLength = 64

	MinCodeLength  = 6
	MaxCodeLength  = 32
	MinTokenLength = 32
	MaxTokenLength = 256
)

var (
	ErrInvalidLength   = errors.New("invalid secret length")
	ErrInvalidAlphabet = errors.New("invalid secret alphabet")
	ErrRandomSource    = errors.New("random source unavailable")
)

// Generator produces plaintext secrets. The zero value is ready to use and
// reads from crypto/rand with CodeAlphabet for codes.
type Generator struct {
	Alphabet string
	Random   io.Reader
}

func NewGenerator() *Generator {
	return &Generator{Alphabet: CodeAlphabet, Random: rand.Reader}
}

// Code returns a short code meant to be typed by a person.
func (g *Generator) Code(length int) (string, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return "", ErrInvalidLength
	}

	alphabet := CodeAlphabet
	reader := io.Reader(rand.Reader)
	if g != nil {
		if g.Alphabet != "" {
			alphabet = g.Alphabet
		}
		if g.Random != nil {
			reader = g.Random
		}
	}
	if len(alphabet) < 2 {
		return "", ErrInvalidAlphabet
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(reader, max)
		if err != nil {
			return "", errors.Join(ErrRandomSource, err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}

	return b.String(), nil
}

// Token returns a base62 bearer token.
func (g *Generator) Token(length int) (string, error) {
	if length < MinTokenLength || length > MaxTokenLength {
		return "", ErrInvalidLength
	}

	var (
		token string
		err   error
	)
	if g != nil && g.Random != nil {
		token, err = base62.RandomWithReader(length, g.Random)
	} else {
		token, err = base62.Random(length)
	}
	if err != nil {
		return "", errors.Join(ErrRandomSource, err)
	}
	return token, nil
}
