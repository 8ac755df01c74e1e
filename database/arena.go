package database

const (
	arenaChunkSize = 64 << 10
	// values larger than this get a chunk of their own
	arenaLargeValue = arenaChunkSize / 4
)

// arena hands out byte slices carved from fixed-size chunks. Memory is
// released all at once.
type arena struct {
	chunks [][]byte
	cur    []byte
	size   int
}

func (a *arena) alloc(n int) []byte {
	if n == 0 {
		return []byte{}
	}
	if n > arenaLargeValue {
		b := make([]byte, n)
		a.chunks = append(a.chunks, b)
		a.size += n
		return b
	}
	if cap(a.cur)-len(a.cur) < n {
		a.cur = make([]byte, 0, arenaChunkSize)
		a.chunks = append(a.chunks, a.cur)
		a.size += arenaChunkSize
	}
	start := len(a.cur)
	a.cur = a.cur[:start+n]
	return a.cur[start : start+n : start+n]
}

func (a *arena) copy(b []byte) []byte {
	dst := a.alloc(len(b))
	copy(dst, b)
	return dst
}

func (a *arena) release() {
	a.chunks = nil
	a.cur = nil
	a.size = 0
}
