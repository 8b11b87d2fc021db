// Package intrinsic implements the value rendering and conversions shared by
// the interpreter built-ins and the C generator.
package intrinsic

import (
	"fmt"
	"strconv"
)

// DefaultPrecision is the number of fraction digits written for a real
// without rounding metadata. It matches C's %f.
const DefaultPrecision = 6

// Formatter renders values the way write and writeln print them.
type Formatter struct {
	Precision  int // fraction digits for reals without explicit precision.
	TrueToken  string
	FalseToken string
}

// NewFormatter creates a Formatter with C compatible defaults.
func NewFormatter() Formatter {
	return Formatter{Precision: DefaultPrecision, TrueToken: "TRUE", FalseToken: "FALSE"}
}

// AppendValue appends the text of value to dst and returns the extended buffer.
// value is one of int64, float64, byte (a char), bool or string.
// The text is right aligned to width when it is shorter. prec < 0 selects the
// formatter precision and is ignored for non-real values.
func (f Formatter) AppendValue(dst []byte, value any, width, prec int) []byte {
	const space = "                                "
	prevLen := len(dst)
	switch v := value.(type) {
	case int64:
		dst = strconv.AppendInt(dst, v, 10)
	case float64:
		if prec < 0 {
			prec = f.Precision
		}
		dst = strconv.AppendFloat(dst, v, 'f', prec, 64)
	case byte:
		dst = append(dst, v)
	case bool:
		if v {
			dst = append(dst, f.TrueToken...)
		} else {
			dst = append(dst, f.FalseToken...)
		}
	case string:
		dst = append(dst, v...)
	default:
		panic(fmt.Sprintf("unsupported format type: %T", value))
	}

	leftPad := width - (len(dst) - prevLen)
	if leftPad <= 0 {
		return dst
	}
	n := len(dst) - prevLen
	for pad := leftPad; pad > 0; pad -= len(space) {
		dst = append(dst, space[:min(pad, len(space))]...)
	}
	// Shift the text right and blank the freed prefix.
	copy(dst[prevLen+leftPad:], dst[prevLen:prevLen+n])
	for i := prevLen; i < prevLen+leftPad; i++ {
		dst[i] = ' '
	}
	return dst
}

// Sprint renders values without width or precision, concatenated.
func (f Formatter) Sprint(values ...any) string {
	var buf []byte
	for _, v := range values {
		buf = f.AppendValue(buf, v, 0, -1)
	}
	return string(buf)
}
