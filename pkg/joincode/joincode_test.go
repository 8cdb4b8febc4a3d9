package joincode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	t.Run("generates default length code", func(t *testing.T) {
		code := Generate()
		assert.Len(t, code, defaultLength)
	})

	t.Run("generates uppercase alphanumeric only", func(t *testing.T) {
		code := Generate()
		for _, char := range code {
			assert.True(t,
				(char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9'),
				"code should only contain A-Z and 0-9, got: %c", char)
		}
	})

	t.Run("generates mostly unique codes", func(t *testing.T) {
		codes := make(map[string]bool)
		for range 100 {
			codes[Generate()] = true
		}
		assert.Greater(t, len(codes), 95)
	})
}

func TestGenerateN(t *testing.T) {
	t.Run("clamps below minimum", func(t *testing.T) {
		assert.Len(t, GenerateN(1), MinLength)
	})

	t.Run("clamps above maximum", func(t *testing.T) {
		assert.Len(t, GenerateN(20), MaxLength)
	})

	t.Run("honors an in-range length", func(t *testing.T) {
		assert.Len(t, GenerateN(5), 5)
	})
}
