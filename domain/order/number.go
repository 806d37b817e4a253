package order

import (
	"fmt"

	nanoid "github.com/jaevor/go-nanoid"
)

const numberAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// NumberGenerator produces human-readable order numbers such as SH-7K2M9QX4PA.
type NumberGenerator struct {
	next func() string
}

// NewNumberGenerator returns a generator backed by a nanoid source.
func NewNumberGenerator() (*NumberGenerator, error) {
	gen, err := nanoid.CustomASCII(numberAlphabet, 10)
	if err != nil {
		return nil, fmt.Errorf("order number generator: %w", err)
	}
	return &NumberGenerator{next: gen}, nil
}

// Next returns a new order number.
func (g *NumberGenerator) Next() string {
	return "SH-" + g.next()
}
