package utils

// Deref returns the value p points to, or the zero value for nil.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// NonEmpty reports whether s is set and not the empty string.
func NonEmpty(s *string) bool {
	return s != nil && *s != ""
}
