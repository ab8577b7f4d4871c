package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"http://localhost:3000/", "https://sikoma.example.go.id"}

	assert.True(t, OriginAllowed("", "api.example", nil))
	assert.True(t, OriginAllowed("https://api.example", "api.example", nil))
	assert.True(t, OriginAllowed("http://localhost:3000", "api.example", allowed))
	assert.True(t, OriginAllowed("https://SIKOMA.example.go.id", "api.example", allowed))

	assert.False(t, OriginAllowed("https://evil.example", "api.example", allowed))
	assert.False(t, OriginAllowed("http://localhost:3001", "api.example", allowed))
	assert.False(t, OriginAllowed("null", "api.example", allowed))

	assert.True(t, OriginAllowed("https://evil.example", "api.example", []string{"*"}))
}
