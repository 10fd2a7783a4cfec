// Package diskslice provides an append-only slice that transparently
// spills to a temporary file when it outgrows a memory threshold. It is
// meant for ingest buffers whose size depends on external data, such as a
// programme guide that may hold anywhere from a few hundred to a few
// million entries.
//
// Items are kept in memory until the estimated footprint crosses the
// threshold, then the whole buffer moves to a JSON-lines temp file and
// later appends go straight to disk. Reads work the same either way:
//
//	ds, _ := diskslice.New[Programme](diskslice.Options{Name: "guide"})
//	defer ds.Close()
//	ds.Append(p)
//	ds.For(func(i int, p *Programme) bool { ... ; return true })
package diskslice

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// Options configures a DiskSlice.
type Options struct {
	// MemoryThreshold is the estimated byte limit before spilling to
	// disk. Default: 500MB.
	MemoryThreshold int64

	// TempDir is the directory for spill files. Default: os.TempDir().
	TempDir string

	// EstimatedItemSize is the assumed per-item footprint in bytes, used
	// to decide when to spill. Default: 256.
	EstimatedItemSize int

	// Name is used in spill file naming.
	Name string
}

// DefaultOptions returns the defaults described on Options.
func DefaultOptions() Options {
	return Options{
		MemoryThreshold:   500 * 1024 * 1024,
		TempDir:           os.TempDir(),
		EstimatedItemSize: 256,
		Name:              "diskslice",
	}
}

// DiskSlice is an append-only, spill-to-disk slice. T must be
// JSON-serializable. Safe for concurrent reads once population is done.
type DiskSlice[T any] struct {
	opts Options

	mu       sync.RWMutex
	memItems []T
	memBytes int64

	spilled   bool
	diskFile  *os.File
	diskPath  string
	diskCount int
}

// New creates a DiskSlice; zero-valued options fall back to defaults.
func New[T any](opts Options) (*DiskSlice[T], error) {
	defaults := DefaultOptions()
	if opts.MemoryThreshold <= 0 {
		opts.MemoryThreshold = defaults.MemoryThreshold
	}
	if opts.TempDir == "" {
		opts.TempDir = defaults.TempDir
	}
	if opts.EstimatedItemSize <= 0 {
		opts.EstimatedItemSize = defaults.EstimatedItemSize
	}
	if opts.Name == "" {
		opts.Name = defaults.Name
	}
	return &DiskSlice[T]{opts: opts, memItems: make([]T, 0, 64)}, nil
}

// Append adds an item, spilling the buffer to disk if the memory
// threshold is crossed.
func (ds *DiskSlice[T]) Append(item T) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.spilled {
		return ds.appendToDisk(item)
	}

	ds.memItems = append(ds.memItems, item)
	ds.memBytes += int64(ds.opts.EstimatedItemSize)

	if ds.memBytes >= ds.opts.MemoryThreshold {
		if err := ds.spillToDisk(); err != nil {
			return fmt.Errorf("spilling to disk: %w", err)
		}
	}
	return nil
}

// Len returns the number of items.
func (ds *DiskSlice[T]) Len() int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.spilled {
		return ds.diskCount
	}
	return len(ds.memItems)
}

// Get retrieves the item at index.
func (ds *DiskSlice[T]) Get(index int) (*T, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if ds.spilled {
		return ds.getFromDisk(index)
	}
	if index < 0 || index >= len(ds.memItems) {
		return nil, fmt.Errorf("index %d out of bounds (len=%d)", index, len(ds.memItems))
	}
	return &ds.memItems[index], nil
}

// For iterates over all items in append order. Returning false from fn
// stops the iteration.
func (ds *DiskSlice[T]) For(fn func(index int, item *T) bool) error {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if ds.spilled {
		return ds.forDisk(fn)
	}
	for i := range ds.memItems {
		if !fn(i, &ds.memItems[i]) {
			break
		}
	}
	return nil
}

// IsSpilled reports whether the buffer has moved to disk.
func (ds *DiskSlice[T]) IsSpilled() bool {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.spilled
}

// Close removes the spill file, if any. The slice is unusable afterwards.
func (ds *DiskSlice[T]) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.diskFile != nil {
		ds.diskFile.Close()
		ds.diskFile = nil
	}
	if ds.diskPath != "" {
		os.Remove(ds.diskPath)
		ds.diskPath = ""
	}
	ds.memItems = nil
	return nil
}

func (ds *DiskSlice[T]) spillToDisk() error {
	f, err := os.CreateTemp(ds.opts.TempDir, ds.opts.Name+"-*.jsonl")
	if err != nil {
		return fmt.Errorf("creating spill file: %w", err)
	}
	ds.diskFile = f
	ds.diskPath = f.Name()

	encoder := json.NewEncoder(f)
	for i := range ds.memItems {
		if err := encoder.Encode(&ds.memItems[i]); err != nil {
			return fmt.Errorf("encoding item %d: %w", i, err)
		}
	}

	ds.diskCount = len(ds.memItems)
	ds.spilled = true
	ds.memItems = nil
	ds.memBytes = 0
	return nil
}

func (ds *DiskSlice[T]) appendToDisk(item T) error {
	if _, err := ds.diskFile.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seeking to end: %w", err)
	}
	if err := json.NewEncoder(ds.diskFile).Encode(&item); err != nil {
		return fmt.Errorf("encoding item: %w", err)
	}
	ds.diskCount++
	return nil
}

func (ds *DiskSlice[T]) getFromDisk(index int) (*T, error) {
	if index < 0 || index >= ds.diskCount {
		return nil, fmt.Errorf("index %d out of bounds (len=%d)", index, ds.diskCount)
	}

	// Records are variable length; scan forward from the start.
	if _, err := ds.diskFile.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to start: %w", err)
	}
	decoder := json.NewDecoder(ds.diskFile)
	var item T
	for i := 0; i <= index; i++ {
		if err := decoder.Decode(&item); err != nil {
			return nil, fmt.Errorf("decoding item %d: %w", i, err)
		}
	}
	return &item, nil
}

func (ds *DiskSlice[T]) forDisk(fn func(index int, item *T) bool) error {
	if _, err := ds.diskFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seeking to start: %w", err)
	}

	decoder := json.NewDecoder(ds.diskFile)
	for i := 0; i < ds.diskCount; i++ {
		var item T
		if err := decoder.Decode(&item); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("decoding item %d: %w", i, err)
		}
		if !fn(i, &item) {
			break
		}
	}
	return nil
}
