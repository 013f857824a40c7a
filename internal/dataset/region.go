package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

// RegionTag identifies which of the two shared-memory dataset slots is
// live. Kept as a small integer type (not just 0/1 constants) so a
// future third staging region widens this without a wire-format
// break, per the dispatch specification's open question on region
// count.
type RegionTag uint8

const (
	RegionA RegionTag = 0
	RegionB RegionTag = 1
)

// Other returns the region tag this one is not — the slot a loader
// should prepare its next generation into.
func (t RegionTag) Other() RegionTag {
	if t == RegionA {
		return RegionB
	}
	return RegionA
}

func (t RegionTag) String() string {
	if t == RegionA {
		return "A"
	}
	return "B"
}

// controlBlockSize is 16 bytes: an 8-byte generation id (offset 0,
// accessed atomically), a 4-byte region tag (offset 8, accessed
// atomically so torn reads are impossible even without a lock), and 4
// bytes of padding reserved for a future widened region tag.
const controlBlockSize = 16

// ControlBlock is the well-known, fixed-size shared region every
// attached process (and the external loader) maps read-write. Reads
// and writes go through atomic primitives on the mapped bytes so a
// reader never observes a torn (half-old, half-new) value without
// needing to hold any lock for the fast path, matching the dispatch
// specification's "atomic snapshot suffices" requirement.
type ControlBlock struct {
	file *os.File
	data mmap.MMap
}

// OpenControlBlock maps (creating if necessary) the control-block
// file at path. A freshly created control block starts at generation
// 0, region A — callers must publish at least one generation before
// any query can succeed (Scenario 2 of the dispatch specification's
// end-to-end tests: a fresh shared facade with nothing published
// reports DatasetUnavailable).
func OpenControlBlock(path string) (*ControlBlock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating control block directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening control block: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() < controlBlockSize {
		if err := f.Truncate(controlBlockSize); err != nil {
			f.Close()
			return nil, fmt.Errorf("sizing control block: %w", err)
		}
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mapping control block: %w", err)
	}

	return &ControlBlock{file: f, data: m}, nil
}

// Close unmaps and closes the control-block file. It does not delete
// it: the control block outlives any single attached process, and its
// destruction is owned by external tooling per the dispatch
// specification's shared-resource policy.
func (c *ControlBlock) Close() error {
	errUnmap := c.data.Unmap()
	errClose := c.file.Close()
	if errUnmap != nil {
		return errUnmap
	}
	return errClose
}

func (c *ControlBlock) genPtr() *uint64 {
	return (*uint64)(unsafe.Pointer(&c.data[0]))
}

func (c *ControlBlock) tagPtr() *uint32 {
	return (*uint32)(unsafe.Pointer(&c.data[8]))
}

// Read takes an atomic snapshot of (region tag, generation id). It
// never blocks and never takes a lock: SharedFacade.CheckAndReload calls this
// on every query's fast path.
func (c *ControlBlock) Read() (RegionTag, uint64) {
	tag := RegionTag(atomic.LoadUint32(c.tagPtr()))
	gen := atomic.LoadUint64(c.genPtr())
	return tag, gen
}

// Publish atomically installs a new (region tag, generation id) pair.
// Only the external loader calls this, and only while holding the
// shared barriers' pending_update_mutex and query_mutex with the
// query counter at zero (see internal/barriers and internal/loader).
// The generation is written first so a concurrent reader that has
// already observed the new tag never observes a stale generation for
// it; readers re-derive correctness by re-checking both fields
// together on their next query regardless of write order, so this
// ordering is a defense-in-depth choice, not a correctness requirement.
func (c *ControlBlock) Publish(tag RegionTag, generation uint64) {
	atomic.StoreUint64(c.genPtr(), generation)
	atomic.StoreUint32(c.tagPtr(), uint32(tag))
}
