package mapview

import "sync"

// Handle owns the single map instance of a console. The map is created on
// the first Ensure; every later call returns the same instance.
type Handle struct {
	size Size
	once sync.Once
	m    *Map
}

func NewHandle(size Size) *Handle {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultSize
	}
	return &Handle{size: size}
}

func (h *Handle) Ensure() *Map {
	h.once.Do(func() {
		h.m = newMap(h.size)
	})
	return h.m
}
