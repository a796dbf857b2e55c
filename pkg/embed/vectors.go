// Package embed loads word vectors, embeds short texts with them and
// indexes the results for nearest-neighbour search.
package embed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// ErrDimension reports a vector whose size differs from the model's.
var ErrDimension = errors.New("embed: inconsistent vector dimension")

// Model maps words to vectors.
type Model struct {
	dim     int
	vectors map[string][]float32
}

// NewModel creates an empty model of the given dimension.
func NewModel(dim int) *Model {
	return &Model{dim: dim, vectors: make(map[string][]float32)}
}

// Set registers the vector of a word.
func (m *Model) Set(word string, vec []float32) error {
	if m.dim == 0 {
		m.dim = len(vec)
	}
	if len(vec) != m.dim {
		return fmt.Errorf("%w: %q has %d values, expected %d", ErrDimension, word, len(vec), m.dim)
	}
	m.vectors[word] = vec
	return nil
}

// Dim returns the vector size.
func (m *Model) Dim() int { return m.dim }

// Len returns the number of words.
func (m *Model) Len() int { return len(m.vectors) }

// Vector returns the vector of a word.
func (m *Model) Vector(word string) ([]float32, bool) {
	v, ok := m.vectors[word]
	return v, ok
}

// LoadFile reads a model in word2vec text format from path.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("embed: open vectors: %w", err)
	}
	defer f.Close()
	return LoadVectors(f)
}

// LoadVectors reads the word2vec / fastText text format: an optional
// "<count> <dim>" header, then one "<word> <v1> ... <vn>" line per word.
func LoadVectors(r io.Reader) (*Model, error) {
	m := NewModel(0)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		parts := strings.Fields(sc.Text())
		if len(parts) == 0 {
			continue
		}
		if line == 1 && len(parts) == 2 {
			if _, err := strconv.Atoi(parts[0]); err == nil {
				dim, err := strconv.Atoi(parts[1])
				if err != nil {
					return nil, fmt.Errorf("embed: header: %w", err)
				}
				m.dim = dim
				continue
			}
		}
		vec := make([]float32, len(parts)-1)
		for i, s := range parts[1:] {
			f, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, fmt.Errorf("embed: line %d: %w", line, err)
			}
			vec[i] = float32(f)
		}
		if err := m.Set(parts[0], vec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("embed: read vectors: %w", err)
	}
	return m, nil
}

// Embed returns the vector of text: the word's own vector when known,
// otherwise the mean of the vectors of its characters. ok is false when
// nothing in text is known or the result is the zero vector.
func (m *Model) Embed(text string) ([]float32, bool) {
	text = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	if text == "" {
		return nil, false
	}
	if v, ok := m.vectors[text]; ok {
		return v, nonZero(v)
	}

	sum := make([]float32, m.dim)
	known := 0
	for _, r := range text {
		v, ok := m.vectors[string(r)]
		if !ok {
			continue
		}
		for i := range sum {
			sum[i] += v[i]
		}
		known++
	}
	if known == 0 {
		return nil, false
	}
	for i := range sum {
		sum[i] /= float32(known)
	}
	return sum, nonZero(sum)
}

func nonZero(v []float32) bool {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	return norm > 0 && !math.IsNaN(norm)
}
