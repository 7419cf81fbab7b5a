package vectorstore

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// DefaultDimensions is the vector size produced by HashEmbedder
const DefaultDimensions = 256

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// HashEmbedder is a deterministic bag-of-words embedder using signed
// feature hashing. Vectors are L2 normalized.
type HashEmbedder struct {
	Dimensions int
}

// NewHashEmbedder creates an embedder with DefaultDimensions
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{Dimensions: DefaultDimensions}
}

// Embed implements Embedder
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	dims := e.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}

	vec := make([]float64, dims)
	for _, token := range tokenize(text) {
		h := xxhash.Sum64String(token)
		idx := int(h % uint64(dims))
		if h&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
