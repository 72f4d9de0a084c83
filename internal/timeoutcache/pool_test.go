package timeoutcache

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewPool_MinimumSizeOne(t *testing.T) {
	p := NewPool(zerolog.Nop(), 0)
	assert.Equal(t, 1, cap(p.sem))

	p = NewPool(zerolog.Nop(), -5)
	assert.Equal(t, 1, cap(p.sem))
}

func TestPool_Capacity_StaysBetweenOneAndSize(t *testing.T) {
	p := NewPool(zerolog.Nop(), 8)
	// On most CI/sandboxed hosts load.Avg() works; Capacity should never
	// exceed the configured size and never fall below 1.
	c := p.Capacity()
	assert.GreaterOrEqual(t, c, 1)
	assert.LessOrEqual(t, c, 8)
}
