package scan

// Extractor pulls a value out of an input string, reporting whether it
// found one.
type Extractor[T any] func(string) (T, bool)

// FirstOf runs fns in order against input and returns the first hit.
func FirstOf[T any](input string, fns ...Extractor[T]) (T, bool) {
	for _, fn := range fns {
		if v, ok := fn(input); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
