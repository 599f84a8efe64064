package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatOptionalSide(t *testing.T) {
	assert.Equal(t, "-", formatOptionalSide(nil, nil))
	assert.Equal(t, "1.5 SOL", formatOptionalSide(f(1.5), s("SOL")))
	assert.Equal(t, "200", formatOptionalSide(f(200), nil))
}
