package util

// InPlaceFilter keeps the elements of s matching p, preserving their order, and reports how many
// were removed. The tail beyond the new length is zeroed.
func InPlaceFilter[T any](s *[]T, p func(T) bool) int {
	i := 0
	for _, e := range *s {
		if p(e) {
			(*s)[i] = e
			i++
		}
	}

	removed := len(*s) - i
	var zero T
	for j := i; j < len(*s); j++ {
		(*s)[j] = zero
	}
	*s = (*s)[:i]

	return removed
}
