package ident

import "sync/atomic"

// Allocator hands out unique, strictly increasing record identifiers.
// The zero value is ready to use; the first call to Next returns 1.
type Allocator struct {
	last atomic.Uint32
}

// Default is the process-wide allocator. Values are never reused, even when
// a catalog is discarded and rebuilt.
var Default = New()

func New() *Allocator {
	return &Allocator{}
}

// Next returns the next identifier. Safe for concurrent use.
func (a *Allocator) Next() uint32 {
	return a.last.Add(1)
}

// Last returns the most recently issued identifier, or 0 if none.
func (a *Allocator) Last() uint32 {
	return a.last.Load()
}
