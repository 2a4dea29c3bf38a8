// Package identifier assigns short, stable item identifiers using bijective
// base-26 numbering over the lowercase alphabet: 0 -> "a", 25 -> "z", 26 -> "aa".
package identifier

import (
	"errors"
	"fmt"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

const base = len(alphabet)

// ErrInvalidIdentifier is returned when a string is not a bijective base-26 identifier.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// Encode returns the identifier for counter n. Negative counters have no identifier.
func Encode(n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("%w: negative counter %d", ErrInvalidIdentifier, n)
	}
	// Bijective numeration: shift by one before each digit so there is no zero digit
	// and therefore no leading-zero collision ("a" != "aa").
	var buf [16]byte
	i := len(buf)
	for n++; n > 0; n = (n - 1) / base {
		i--
		buf[i] = alphabet[(n-1)%base]
	}
	return string(buf[i:]), nil
}

// MustEncode is Encode for counters known to be non-negative.
func MustEncode(n int) string {
	id, err := Encode(n)
	if err != nil {
		panic(err)
	}
	return id
}

// Decode recovers the counter an identifier was generated from.
func Decode(id string) (int, error) {
	if id == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	n := 0
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c < 'a' || c > 'z' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
		}
		n = n*base + int(c-'a') + 1
	}
	return n - 1, nil
}

// Generator hands out identifiers in discovery order, starting at counter 0.
type Generator struct {
	next int
}

// NewGenerator creates a generator positioned at counter 0.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns the identifier for the current counter and advances it.
func (g *Generator) Next() string {
	id := MustEncode(g.next)
	g.next++
	return id
}

// Count reports how many identifiers have been issued.
func (g *Generator) Count() int {
	return g.next
}
