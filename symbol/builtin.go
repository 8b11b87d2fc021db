package symbol

import (
	"github.com/ahrtr/gocontainer/set"
)

// EntryName is the reserved name under which the main block is registered.
const EntryName = "main"

// Built-in procedure and function names.
const (
	BuiltinWrite   = "write"
	BuiltinWriteln = "writeln"
	BuiltinRead    = "read"
	BuiltinReadln  = "readln"
	BuiltinLength  = "length"
	BuiltinChr     = "chr"
	BuiltinOrd     = "ord"
	BuiltinInc     = "inc"
	BuiltinDec     = "dec"
	BuiltinConcat  = "concat"
	BuiltinInsert  = "insert"
)

var builtins = newBuiltinSet()

func newBuiltinSet() set.Interface {
	s := set.New()
	s.Add(BuiltinWrite, BuiltinWriteln, BuiltinRead, BuiltinReadln, BuiltinLength,
		BuiltinChr, BuiltinOrd, BuiltinInc, BuiltinDec, BuiltinConcat, BuiltinInsert)
	return s
}

// IsBuiltin reports whether name is a built-in procedure or function.
func IsBuiltin(name string) bool {
	return builtins.Contains(name)
}

// IsReserved reports whether name may not be declared by a program.
func IsReserved(name string) bool {
	return name == EntryName || IsBuiltin(name)
}

// BuiltinResult returns the result type of a built-in function, TypeNone for procedures.
func BuiltinResult(name string) Type {
	switch name {
	case BuiltinLength, BuiltinOrd:
		return TypeInteger
	case BuiltinChr:
		return TypeChar
	case BuiltinConcat:
		return TypeString
	}
	return TypeNone
}
