package blockring

import "slices"

var _ Collection[int] = (*Slice[int])(nil)

// Collection is a growable sequence the Append read variants write into.
type Collection[T any] interface {
	Len() int
	Append(elems ...T)
}

// Reserver is implemented by collections that can grow their capacity ahead
// of an append.
type Reserver interface {
	Reserve(n int)
}

// Slice adapts a plain slice to Collection and Reserver.
type Slice[T any] []T

func (s *Slice[T]) Len() int {
	return len(*s)
}

func (s *Slice[T]) Append(elems ...T) {
	*s = append(*s, elems...)
}

// Reserve makes room for n more elements without another allocation.
func (s *Slice[T]) Reserve(n int) {
	*s = slices.Grow(*s, n)
}
