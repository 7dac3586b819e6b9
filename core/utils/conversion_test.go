package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToString(t *testing.T) {
	// decoded JSON numbers are float64; whole values must not grow ".0"
	assert.Equal(t, "5", ToString(float64(5)))
	assert.Equal(t, "12.5", ToString(12.5))
	assert.Equal(t, "230", ToString([]byte("230")))
	assert.Equal(t, "Azul", ToString("Azul"))
	assert.Equal(t, "true", ToString(true))
}

func TestToInt(t *testing.T) {
	assert.Equal(t, 5, ToInt("5"))
	assert.Equal(t, 5, ToInt(5.0))
	assert.Equal(t, 5, ToInt(int64(5)))
	assert.Equal(t, 0, ToInt("not a number"))
}

func TestToBool(t *testing.T) {
	assert.True(t, ToBool(true))
	assert.True(t, ToBool("1"))
	assert.True(t, ToBool("True"))
	assert.True(t, ToBool(1))
	assert.False(t, ToBool("yes"))
	assert.False(t, ToBool(nil))
}
