package blob

import "fmt"

// CheckKind classifies a violated precondition.
type CheckKind int

// Precondition classes. All of them are caller or layout bugs.
const (
	FieldAbsent CheckKind = iota
	IndexOutOfRange
	ValueOutOfRange
	SizeMismatch
	RegionTooSmall
	TypeMismatch
)

// String returns a short name for the kind.
func (k CheckKind) String() string {
	switch k {
	case FieldAbsent:
		return "field absent"
	case IndexOutOfRange:
		return "index out of range"
	case ValueOutOfRange:
		return "value out of range"
	case SizeMismatch:
		return "size mismatch"
	case RegionTooSmall:
		return "region too small"
	case TypeMismatch:
		return "type mismatch"
	default:
		return "unknown"
	}
}

// CheckError is the value a Blob panics with when a precondition is violated.
// A blob that panicked mid-copy may be partially written.
type CheckError struct {
	Op     string
	Kind   CheckKind
	Detail string
}

// Error implements error.
func (e *CheckError) Error() string {
	return fmt.Sprintf("blob: %s: %s: %s", e.Op, e.Kind, e.Detail)
}

func check(ok bool, op string, kind CheckKind, format string, args ...any) {
	if !ok {
		panic(&CheckError{Op: op, Kind: kind, Detail: fmt.Sprintf(format, args...)})
	}
}

func checkIndex(op string, i, n int) {
	check(i >= 0 && i < n, op, IndexOutOfRange, "index %d not in [0, %d)", i, n)
}

func checkValue(op string, v int32, hi int) {
	check(v >= 0 && int(v) <= hi, op, ValueOutOfRange, "value %d not in [0, %d]", v, hi)
}
