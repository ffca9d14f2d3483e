package listeners

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_AddNotifyRemove(t *testing.T) {
	var s Set
	a, b := 0, 0
	removeA := s.Add(func() { a++ })
	s.Add(func() { b++ })

	s.Notify()
	removeA()
	removeA()
	s.Notify()

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)

	s.Clear()
	s.Notify()
	assert.Equal(t, 2, b)
}
