package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePairOrdersAscending(t *testing.T) {
	a, b := normalizePair(7, 3)
	assert.Equal(t, 3, a)
	assert.Equal(t, 7, b)

	a, b = normalizePair(3, 7)
	assert.Equal(t, 3, a)
	assert.Equal(t, 7, b)
}
