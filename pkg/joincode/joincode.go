// Package joincode generates short, human-typable codes for joining a game.
package joincode

import (
	"math/rand/v2"
	"strings"
)

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	// MinLength is the shortest code this package will generate.
	MinLength = 4
	// MaxLength is the longest code this package will generate.
	MaxLength = 8

	defaultLength = 6
)

// Generate returns a random alphanumeric code of the default length.
//
// The generator is not cryptographically secure and carries no uniqueness
// guarantee on its own; callers must check the result against whatever
// registry of live codes they maintain and retry on collision.
func Generate() string {
	return GenerateN(defaultLength)
}

// GenerateN returns a random alphanumeric code of the given length, clamped
// to [MinLength, MaxLength].
func GenerateN(length int) string {
	if length < MinLength {
		length = MinLength
	}
	if length > MaxLength {
		length = MaxLength
	}

	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		sb.WriteByte(charset[rand.IntN(len(charset))])
	}
	return sb.String()
}
