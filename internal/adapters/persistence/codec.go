// Package persistence keeps the working area (artifacts, ledger and exact
// ratings) consistent with the in-memory rating state.
package persistence

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// EncodeLocator returns the artifact name "{trunc(rating)}_{id}{ext}".
// The rating is truncated toward zero.
func EncodeLocator(rating float64, id, ext string) string {
	return fmt.Sprintf("%d_%s%s", int64(math.Trunc(rating)), id, ext)
}

// DecodeLocator splits an artifact name into its integer rating and id.
// The id is the text between the first '_' and the extension.
func DecodeLocator(locator string) (int64, string, error) {
	prefix, rest, ok := strings.Cut(locator, "_")
	if !ok {
		return 0, "", fmt.Errorf("%w: %q has no separator", ErrInvalidLocator, locator)
	}
	rating, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q rating prefix: %v", ErrInvalidLocator, locator, err)
	}
	id := strings.TrimSuffix(rest, filepath.Ext(rest))
	if id == "" {
		return 0, "", fmt.Errorf("%w: %q has no id", ErrInvalidLocator, locator)
	}
	return rating, id, nil
}
