package validator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	// UsernameRgx allows letters, digits, dot, dash and underscore.
	UsernameRgx = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// NotBlank returns true if a string is not empty or contains only whitespace.
func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

// MinRunes returns true if a string is greater than or equal to a minimum number of n
func MinRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) >= n
}

// MaxRunes returns true if a string is less than or equal to a maximum number of n
func MaxRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}

// Matches returns true if a string value matches a specific regexp pattern.
func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}

// In returns true if a value is in a list of values.
func In[T comparable](value T, list ...T) bool {
	for i := range list {
		if value == list[i] {
			return true
		}
	}
	return false
}

// NoDuplicates returns true if all the values in a slice are unique.
func NoDuplicates[T comparable](values []T) bool {
	seen := make(map[T]struct{}, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			return false
		}
		seen[value] = struct{}{}
	}
	return true
}

// AllNotBlank returns true if no element is blank.
func AllNotBlank(values []string) bool {
	for _, v := range values {
		if !NotBlank(v) {
			return false
		}
	}
	return true
}

// IsUsername checks length bounds and the allowed alphabet.
func IsUsername(value string) bool {
	return MinRunes(value, 3) && MaxRunes(value, 50) && Matches(value, UsernameRgx)
}

// IsUUID returns true if value parses as a UUID.
func IsUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

// Between returns true if min <= value <= max.
func Between[T ~int | ~int64 | ~float64](value, min, max T) bool {
	return value >= min && value <= max
}
