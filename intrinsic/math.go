package intrinsic

import "errors"

type signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

type integer interface {
	signed | unsigned
}

type float interface {
	~float32 | ~float64
}

type numeric interface {
	integer | float
}

// ErrDivideByZero is returned by integer division and modulus with a zero divisor.
var ErrDivideByZero = errors.New("integer divide by zero")

// Div returns a div b truncated toward zero like C integer division.
func Div[T signed](a, b T) (T, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return a / b, nil
}

// Mod returns a mod b with the sign of a like C's % operator.
func Mod[T signed](a, b T) (T, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return a % b, nil
}

// Compare returns -1, 0 or +1 depending on whether a is less than, equal to
// or greater than b.
func Compare[T numeric | ~string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
