// Package idgen mints the short entity IDs used across flowtrack: "ft-" for
// tasks, with callers passing "usr-" or "ntf-" for users and notifications.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultPrefix marks task IDs.
const DefaultPrefix = "ft-"

// Length is the random suffix length after the prefix.
const Length = 12

// alphabet sticks to alphanumerics so IDs paste cleanly into shells and URLs.
const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generate mints a task ID.
func Generate() (string, error) {
	return GenerateWithPrefix(DefaultPrefix)
}

// GenerateWithPrefix mints an ID for the entity the prefix names.
func GenerateWithPrefix(prefix string) (string, error) {
	suffix, err := nanoid.Generate(alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + suffix, nil
}
