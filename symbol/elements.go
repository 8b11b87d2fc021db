package symbol

import (
	"github.com/emirpasic/gods/maps/treemap"

	"github.com/Qwerasdzxc/Pascal-Compiler/intrinsic"
)

// Elements is an ordered index to element table backing arrays and strings.
// Indices are populated contiguously from Lo.
type Elements struct {
	typ      Type
	lo       int
	capacity int  // maximum number of elements, negative when unbounded.
	grow     bool // whether Set may append right after the last index.
	m        *treemap.Map
}

// NewElements returns an empty table of elements of type typ starting at index lo.
// capacity < 0 means unbounded. Growable tables accept writes one past the end.
func NewElements(typ Type, lo, capacity int, grow bool) *Elements {
	return &Elements{
		typ:      typ,
		lo:       lo,
		capacity: capacity,
		grow:     grow,
		m:        treemap.NewWithIntComparator(),
	}
}

// NewString returns a growable 1-based string holding s.
func NewString(s string, capacity int) *Elements {
	e := NewElements(TypeChar, 1, capacity, true)
	e.SetText(s)
	return e
}

// Type returns the element type.
func (e *Elements) Type() Type { return e.typ }

// Lo returns the first index.
func (e *Elements) Lo() int { return e.lo }

// Hi returns the last populated index, Lo()-1 when empty.
func (e *Elements) Hi() int { return e.lo + e.m.Size() - 1 }

// Len returns the number of populated elements.
func (e *Elements) Len() int { return e.m.Size() }

// Capacity returns the maximum number of elements or a negative number when unbounded.
func (e *Elements) Capacity() int { return e.capacity }

// Fill populates indices Lo..Lo+n-1 with zero values.
func (e *Elements) Fill(n int) {
	e.m.Clear()
	for i := 0; i < n; i++ {
		e.m.Put(e.lo+i, Zero(e.typ))
	}
}

// Get returns the element at index i.
func (e *Elements) Get(i int) (Value, bool) {
	v, ok := e.m.Get(i)
	if !ok {
		return Value{}, false
	}
	return v.(Value), true
}

// Set stores v at index i. Growable tables accept i == Hi()+1 while under capacity.
// Set reports false when i is out of range.
func (e *Elements) Set(i int, v Value) bool {
	if _, ok := e.m.Get(i); !ok {
		if !e.grow || i != e.Hi()+1 || e.full() {
			return false
		}
	}
	e.m.Put(i, v)
	return true
}

// Append stores v after the last element.
func (e *Elements) Append(v Value) bool {
	if e.full() {
		return false
	}
	e.m.Put(e.Hi()+1, v)
	return true
}

func (e *Elements) full() bool {
	return e.capacity >= 0 && e.m.Size() >= e.capacity
}

// Reset removes all elements.
func (e *Elements) Reset() { e.m.Clear() }

// Values returns the elements in index order.
func (e *Elements) Values() []Value {
	vals := e.m.Values()
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = v.(Value)
	}
	return out
}

// Text returns the elements as a string of character codes. Null
// characters are skipped.
func (e *Elements) Text() string {
	vals := e.m.Values()
	b := make([]byte, 0, len(vals))
	for _, v := range vals {
		if c := byte(v.(Value).AsInt()); c != 0 {
			b = append(b, c)
		}
	}
	return string(b)
}

// SetText replaces the contents with the characters of s. Characters beyond
// the capacity are dropped and SetText reports false.
func (e *Elements) SetText(s string) bool {
	e.m.Clear()
	for i := 0; i < len(s); i++ {
		if !e.Append(CharValue(s[i])) {
			return false
		}
	}
	return true
}

// Insert inserts s before index at, shifting the following characters.
// at may be one past the end. Insert reports false if at is out of range or
// the result does not fit.
func (e *Elements) Insert(s string, at int) bool {
	out, ok := intrinsic.Insert(e.Text(), s, at-e.lo+1)
	if !ok || e.capacity >= 0 && len(out) > e.capacity {
		return false
	}
	return e.SetText(out)
}

// Copy returns an independent copy of the table.
func (e *Elements) Copy() *Elements {
	c := NewElements(e.typ, e.lo, e.capacity, e.grow)
	it := e.m.Iterator()
	for it.Next() {
		c.m.Put(it.Key(), it.Value())
	}
	return c
}
