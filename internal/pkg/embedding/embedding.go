// Package embedding turns text into fixed-dimension vectors.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultDimension is the system-wide vector width.
const DefaultDimension = 256

// Embedder maps text to a vector of Dimension() components.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// HashEmbedder is a bag-of-hashed-tokens embedder. Each token adds one to
// slot fnv32a(token) % dim and the result is L2-normalized.
type HashEmbedder struct {
	dim int
}

var _ Embedder = (*HashEmbedder)(nil)

// NewHashEmbedder returns an embedder of width dim, or DefaultDimension
// when dim <= 0.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &HashEmbedder{dim: dim}
}

// Dimension returns the vector width.
func (e *HashEmbedder) Dimension() int { return e.dim }

// Embed implements Embedder and never fails.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.Vector(text), nil
}

// Vector is pure and deterministic. Empty input gives the zero vector.
func (e *HashEmbedder) Vector(text string) []float32 {
	vec := make([]float32, e.dim)

	for _, tok := range Tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dim)]++
	}

	return normalize(vec)
}

// normalize scales vec to unit length in place. The zero vector is
// returned unchanged.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// Tokenize lowercases text, blanks everything outside [a-z0-9] and
// whitespace, and splits on whitespace.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case unicode.IsSpace(r):
			return r
		default:
			return ' '
		}
	}, strings.ToLower(text))
	return strings.Fields(cleaned)
}
