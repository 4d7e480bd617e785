// Package naming extracts record keys from uploaded object names.
//
// Object names follow "<sellerId>-<productId>[-...]<extension>". SplitPositional
// reproduces the historical split-and-trust extraction; Parse validates the name.
package naming

import (
	"fmt"
	"path"
	"strings"
)

// Delimiter separates the segments of an object name.
const Delimiter = "-"

// ProductKey identifies the metadata record for an uploaded product image.
type ProductKey struct {
	SellerID  string
	ProductID string
}

// Complete reports whether both parts of the key are present.
func (k ProductKey) Complete() bool {
	return k.SellerID != "" && k.ProductID != ""
}

// KeyError describes an object name that does not follow the naming convention.
type KeyError struct {
	Name     string
	Segments int
	Reason   string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("invalid object name %q (%d segments): %s", e.Name, e.Segments, e.Reason)
}

// SplitPositional splits the raw name on the delimiter and takes the first two
// segments. Nothing is validated: a name without a delimiter yields an empty
// ProductID and extensions stay attached ("abc-123.png" -> "abc", "123.png").
func SplitPositional(name string) ProductKey {
	parts := strings.Split(name, Delimiter)
	key := ProductKey{SellerID: parts[0]}
	if len(parts) > 1 {
		key.ProductID = parts[1]
	}
	return key
}

// Parse extracts the key from the base name with its extension removed and
// requires at least two non-empty segments.
func Parse(name string) (ProductKey, error) {
	base := path.Base(name)
	if base == "." || base == "/" {
		return ProductKey{}, &KeyError{Name: name, Reason: "empty name"}
	}
	stem := strings.TrimSuffix(base, path.Ext(base))

	parts := strings.Split(stem, Delimiter)
	if len(parts) < 2 {
		return ProductKey{}, &KeyError{Name: name, Segments: len(parts), Reason: "expected <sellerId>-<productId>"}
	}

	key := ProductKey{SellerID: parts[0], ProductID: parts[1]}
	if key.SellerID == "" {
		return ProductKey{}, &KeyError{Name: name, Segments: len(parts), Reason: "empty seller id"}
	}
	if key.ProductID == "" {
		return ProductKey{}, &KeyError{Name: name, Segments: len(parts), Reason: "empty product id"}
	}

	return key, nil
}
