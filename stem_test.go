package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStem(t *testing.T) {
	t.Run("inflections collapse to one root", func(t *testing.T) {
		assert.Equal(t, stem("run"), stem("runs"))
		assert.Equal(t, stem("run"), stem("running"))
		assert.Equal(t, stem("cat"), stem("cats"))
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		assert.Equal(t, stem("blue"), stem("  BLUE  "))
		assert.Equal(t, stem("blue"), stem("Blues"))
	})

	t.Run("distinct words stay distinct", func(t *testing.T) {
		assert.NotEqual(t, stem("river"), stem("stone"))
		assert.NotEqual(t, stem("cat"), stem("dog"))
	})

	t.Run("blank input stems to empty", func(t *testing.T) {
		assert.Equal(t, "", stem("   "))
	})
}
