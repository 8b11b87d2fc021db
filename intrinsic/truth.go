package intrinsic

// Truth reports whether the ordinal v of a boolean is true. Any nonzero
// ordinal is true.
func Truth[T integer](v T) bool {
	return v != 0
}

// Ordinal returns the ordinal of b: 1 for true, 0 for false.
func Ordinal[T integer](b bool) T {
	if b {
		return 1
	}
	return 0
}
