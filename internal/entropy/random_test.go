package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSource_IsDeterministic(t *testing.T) {
	a, b := NewSource(7), NewSource(7)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestSystemSource_StaysInRange(t *testing.T) {
	s := NewSystemSource()
	for i := 0; i < 1000; i++ {
		f := s.Float64()
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
		n := s.IntN(5)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 5)
	}
}

func TestSequence_CyclesValues(t *testing.T) {
	s := NewSequence(0.1, 0.9)
	assert.Equal(t, 0.1, s.Float64())
	assert.Equal(t, 0.9, s.Float64())
	assert.Equal(t, 0.1, s.Float64())
	assert.Equal(t, 3, s.Draws())

	assert.False(t, s.Bool()) // 0.9
	assert.True(t, s.Bool())  // 0.1
}

func TestSequence_IntNStaysBelowN(t *testing.T) {
	s := NewSequence(0.0, 0.5, 0.999999)
	assert.Equal(t, 0, s.IntN(4))
	assert.Equal(t, 2, s.IntN(4))
	assert.Equal(t, 3, s.IntN(4))
}

func TestSequence_EmptyYieldsZero(t *testing.T) {
	s := NewSequence()
	assert.Equal(t, 0.0, s.Float64())
	assert.True(t, s.Bool())
}
