package pipe

// Region is a caller-supplied memory region that bytes are copied into or
// out of. Copies across this boundary may fail, which is reported as
// ErrFault and never partially commits a buffer update.
type Region interface {
	// Len is the size of the region in bytes.
	Len() int

	// CopyOut copies src into the region, returning the number of bytes
	// copied.
	CopyOut(src []byte) (int, error)

	// CopyIn copies from the region into dst, returning the number of
	// bytes copied.
	CopyIn(dst []byte) (int, error)
}

// Bytes is a Region over an ordinary byte slice. Copies never fail.
type Bytes []byte

var _ Region = Bytes(nil)

func (b Bytes) Len() int { return len(b) }

func (b Bytes) CopyOut(src []byte) (int, error) { return copy(b, src), nil }

func (b Bytes) CopyIn(dst []byte) (int, error) { return copy(dst, b), nil }
