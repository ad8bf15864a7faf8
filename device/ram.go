package device

import (
	"errors"
	"sync"
)

const pageSize = 4096

// ErrNegativeOffset is returned for accesses below address zero.
var ErrNegativeOffset = errors.New("negative memory offset")

// RAM is a sparse physical address space. Untouched memory reads as zero.
type RAM struct {
	mu    sync.Mutex
	pages map[int64][]byte
}

// NewRAM returns an empty address space.
func NewRAM() *RAM {
	return &RAM{pages: make(map[int64][]byte)}
}

// ReadAt reads len(p) bytes at physical address off.
func (r *RAM) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for n < len(p) {
		addr := off + int64(n)
		base, in := addr&^(pageSize-1), addr&(pageSize-1)
		chunk := min(len(p)-n, int(pageSize-in))
		if page, ok := r.pages[base]; ok {
			copy(p[n:n+chunk], page[in:])
		} else {
			clear(p[n : n+chunk])
		}
		n += chunk
	}
	return n, nil
}

// WriteAt writes p at physical address off.
func (r *RAM) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for n < len(p) {
		addr := off + int64(n)
		base, in := addr&^(pageSize-1), addr&(pageSize-1)
		page, ok := r.pages[base]
		if !ok {
			page = make([]byte, pageSize)
			r.pages[base] = page
		}
		n += copy(page[in:], p[n:])
	}
	return n, nil
}
