package router

import "sync"

// History is the fragment-bearing navigation surface the router writes to.
// Implementations report inbound fragment changes back through
// Router.HandleFragmentChange.
type History interface {
	// Fragment returns the current fragment, including the leading "#".
	Fragment() string
	// Push appends a new history entry with the given fragment.
	Push(fragment string)
	// Replace swaps the fragment of the current entry.
	Replace(fragment string)
}

// MemoryHistory is an in-process History with a back stack. It is the
// default when no host-provided history is wired in.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []string
}

// NewMemoryHistory creates a history positioned at the empty fragment.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{entries: []string{""}}
}

func (h *MemoryHistory) Fragment() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

func (h *MemoryHistory) Push(fragment string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, fragment)
}

func (h *MemoryHistory) Replace(fragment string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[len(h.entries)-1] = fragment
}

// Back pops the current entry and returns the new current fragment. The
// initial entry is never popped.
func (h *MemoryHistory) Back() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) > 1 {
		h.entries = h.entries[:len(h.entries)-1]
	}
	return h.entries[len(h.entries)-1]
}

// Depth returns the number of entries on the stack.
func (h *MemoryHistory) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
