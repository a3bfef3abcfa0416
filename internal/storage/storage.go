// Package storage defines what the blob backends have in common: the
// not-found sentinel and the variant naming scheme.
package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by blob backends when a requested blob does not
// exist.
var ErrNotFound = errors.New("blob not found")

// VariantKey derives the storage name of a cached variant from the image id
// and the requested dimensions. The name is a pure function of its inputs,
// so the same request always resolves to the same blob. Variants are always
// encoded as JPEG.
func VariantKey(id string, width, height int) string {
	return fmt.Sprintf("%s_%dx%d.jpg", id, width, height)
}
