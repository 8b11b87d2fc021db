package intrinsic

// Chr returns the character with code n. Codes outside a byte are rejected.
func Chr[T integer](n T) (byte, bool) {
	if n < 0 || uint64(n) > 255 {
		return 0, false
	}
	return byte(n), true
}

// Ord returns the code of character c.
func Ord(c byte) int64 {
	return int64(c)
}

// Insert inserts sub into s before 1-based position at. at may be one past the end.
func Insert(s, sub string, at int) (string, bool) {
	if at < 1 || at > len(s)+1 {
		return s, false
	}
	return s[:at-1] + sub + s[at-1:], true
}

