// Package utils holds small nil-safe helpers for the optional fields the
// backend models carry (product price, grant expiry).
package utils

// Value dereferences v, returning the zero value when v is nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Ptr returns a pointer to v, for filling optional payload fields inline.
func Ptr[T any](v T) *T {
	return &v
}
