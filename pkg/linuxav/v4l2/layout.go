package v4l2

import "math/bits"

// layout describes the ABI details that change kernel structure sizes
// between 32-bit and 64-bit userspace.
type layout struct {
	word int // sizeof(long) and pointer alignment
}

var (
	layout64     = layout{word: 8}
	layout32     = layout{word: 4}
	nativeLayout = layout{word: bits.UintSize / 8}
)

// align rounds n up to the layout's word boundary.
func (l layout) align(n int) int {
	return (n + l.word - 1) &^ (l.word - 1)
}

// timevalSize is sizeof(struct timeval) with a native time_t.
func (l layout) timevalSize() int {
	return 2 * l.word
}
