package slices

// Reverse reverses s in place and returns it.
func Reverse[E any, S ~[]E](s S) S {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
	return s
}
