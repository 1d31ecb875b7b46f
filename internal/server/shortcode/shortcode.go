// Package shortcode mints the 8-character codes used to share parties.
package shortcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"regexp"
)

const (
	// Alphabet is base58: alphanumerics without 0, O, I and l.
	Alphabet = "123456789abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	Length   = 8

	DefaultMaxAttempts = 16
)

// Largest multiple of len(Alphabet) that fits in a byte; bytes at or above
// it are rejected so every symbol is equally likely.
const rejectFrom = 256 - 256%len(Alphabet)

// ErrExhausted is returned when every attempt collided.
var ErrExhausted = errors.New("shortcode: no free code found")

var pattern = regexp.MustCompile(`^[a-zA-Z1-9]{8}$`)

// Valid reports whether s is shaped like a short code.
func Valid(s string) bool {
	return pattern.MatchString(s)
}

// Checker tells whether a code is already used.
type Checker interface {
	ShortIDExists(ctx context.Context, code string) (bool, error)
}

// Generator draws random codes until one is free, at most maxAttempts times.
type Generator struct {
	maxAttempts int
	random      io.Reader
}

func NewGenerator(maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{maxAttempts: maxAttempts, random: rand.Reader}
}

// MaxAttempts is the per-call retry bound.
func (g *Generator) MaxAttempts() int {
	return g.maxAttempts
}

// Generate returns a code that c reports as unused.
func (g *Generator) Generate(ctx context.Context, c Checker) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.draw()
		if err != nil {
			return "", fmt.Errorf("shortcode: draw: %w", err)
		}

		exists, err := c.ShortIDExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrExhausted
}

func (g *Generator) draw() (string, error) {
	out := make([]byte, 0, Length)
	buf := make([]byte, Length*2)

	for len(out) < Length {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= rejectFrom {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == Length {
				break
			}
		}
	}
	return string(out), nil
}
