package handoff

import (
	"fmt"

	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/status"
)

// Capacity is the number of cores the registry can hold.
const Capacity = 10

// Entry is a core to start and where.
type Entry struct {
	// Core is the destination core, already defaulted
	Core bootimage.Core

	// AArch32 selects 32-bit execution on an A53 core
	AArch32 bool

	// HighVector selects the high reset vector on cores that have one
	HighVector bool

	// Address is the entry point
	Address uint64
}

// FullError indicates a registration for a new core with no room left.
type FullError struct {
	Core     bootimage.Core
	Capacity int
}

func (e *FullError) Error() string {
	return fmt.Sprintf("handoff table full (%d entries): cannot add core %s", e.Capacity, e.Core)
}

func (e *FullError) StatusCode() status.Code { return status.HandoffTableFull }

// Registry is the ordered set of cores to start, at most one entry per core.
type Registry struct {
	entries []Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make([]Entry, 0, Capacity)}
}

// Register appends e unless its core is already present, in which case the
// first registration is kept and Register reports false.
func (r *Registry) Register(e Entry) (bool, error) {
	for _, have := range r.entries {
		if have.Core == e.Core {
			return false, nil
		}
	}
	if len(r.entries) == Capacity {
		return false, &FullError{Core: e.Core, Capacity: Capacity}
	}
	r.entries = append(r.entries, e)
	return true, nil
}

// Lookup returns the entry for core.
func (r *Registry) Lookup(core bootimage.Core) (Entry, bool) {
	for _, e := range r.entries {
		if e.Core == core {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns the entries in registration order.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.entries) }
