// Package asmap implements the two-level address-space map: a circular
// main chain of backing regions, each owning a linear sub-chain of
// process/hole segments. It enforces invariants I1–I6 from spec.md §3 and
// is the component the allocator façade drives for search, split,
// coalesce and translate.
//
// The circular-with-sentinel main chain and the linear sub-chain mirror
// the teacher's doubly-linked free lists (mem.Physmem_t's nexti chains,
// vm.Vm_t's region bookkeeping) adapted from index-linked to
// pointer-linked, since Go has no use-after-free hazard forcing an arena
// index scheme the way the spec's target-language note allows for.
package asmap

import "github.com/mrkrishnaaggarwal/mems/internal/metarena"

// VAddr is an opaque virtual handle in MeMS's private address space. It
// is deliberately not a bare int so that a byte count and a handle can
// never be silently interchanged, mirroring the teacher's Pa_t.
type VAddr uint64

// SegKind distinguishes an occupied segment from a free one.
type SegKind uint8

const (
	// Hole marks a free segment.
	Hole SegKind = iota
	// Process marks an occupied segment.
	Process
)

func (k SegKind) String() string {
	if k == Hole {
		return "H"
	}
	return "P"
}

// SubNode is one segment (process or hole) within a MainNode's sub-chain.
type SubNode struct {
	Kind       SegKind
	Size       int
	POff       int // byte offset of this segment within the owning MainNode's Phys region
	VAddrStart VAddr
	VAddrEnd   VAddr
	Next, Prev *SubNode
}

// MainNode is one backing region obtained from the page provider.
type MainNode struct {
	NumPages   int
	Phys       []byte // the full backing region, length NumPages times the allocator's configured page size
	VAddrStart VAddr
	VAddrEnd   VAddr
	SubHead    *SubNode
	Next, Prev *MainNode
}

// Map is the address-space map: the sentinel-terminated circular main
// chain plus the global virtual-address cursor.
type Map struct {
	sentinel  *MainNode
	mainArena *metarena.Arena[MainNode]
	subArena  *metarena.Arena[SubNode]
	base      VAddr
	nextVAddr VAddr
}

// New creates an empty map whose first region will start at base.
func New(base VAddr, mainArena *metarena.Arena[MainNode], subArena *metarena.Arena[SubNode]) *Map {
	s := mainArena.Alloc()
	s.NumPages = 0
	s.SubHead = nil
	s.VAddrStart = base
	s.VAddrEnd = base - 1
	s.Next = s
	s.Prev = s
	return &Map{sentinel: s, mainArena: mainArena, subArena: subArena, base: base, nextVAddr: base}
}

// Reset relinks the sentinel to itself and rewinds the virtual-address
// cursor back to the configured base, per spec.md §4.3's Finish: after
// teardown, the next region starts at the same address the very first
// one did.
func (m *Map) Reset() {
	m.sentinel.Next = m.sentinel
	m.sentinel.Prev = m.sentinel
	m.nextVAddr = m.base
}

// Sentinel returns the chain's head-and-tail marker. Traversal starts at
// Sentinel().Next and ends when it returns to Sentinel().
func (m *Map) Sentinel() *MainNode { return m.sentinel }

// Empty reports whether the chain holds no real backing regions.
func (m *Map) Empty() bool { return m.sentinel.Next == m.sentinel }

// AppendRegion creates a new main node covering all len(phys) bytes of
// phys, with a virtual range starting one byte past the current last
// region's end (or the global base, if the chain is empty), and links it
// immediately before the sentinel. No sub-chain is installed; the caller
// installs SubHead.
func (m *Map) AppendRegion(pages int, phys []byte) *MainNode {
	n := m.mainArena.Alloc()
	n.NumPages = pages
	n.Phys = phys
	n.VAddrStart = m.nextVAddr
	n.VAddrEnd = n.VAddrStart + VAddr(len(phys)) - 1

	last := m.sentinel.Prev
	n.Prev = last
	n.Next = m.sentinel
	last.Next = n
	m.sentinel.Prev = n

	m.nextVAddr = n.VAddrEnd + 1
	return n
}

// NewSubNode allocates a zeroed sub-node from the sub-chain metadata
// arena. It is exported so the façade can build the initial
// process(+hole) pair when a region is appended.
func (m *Map) NewSubNode() *SubNode { return m.subArena.Alloc() }

// SplitHole carves size bytes off the front of seg, which must be a Hole
// of at least size bytes. If seg is exactly size bytes, it simply
// becomes a Process segment. Otherwise seg shrinks to size bytes and
// becomes Process, and a fresh Hole sub-node covering the residual is
// inserted immediately after it. Returns the (now Process) segment's
// starting handle.
//
// This always preserves I5: seg was a Hole (so its successor, if any,
// was not — I5 held before), and the only segment inserted is the
// residual Hole, placed strictly between seg and that non-Hole
// successor.
func (m *Map) SplitHole(seg *SubNode, size int) VAddr {
	if seg.Kind != Hole {
		panic("asmap: SplitHole called on a non-hole segment")
	}
	if seg.Size < size {
		panic("asmap: SplitHole called with size exceeding the hole")
	}
	start := seg.VAddrStart
	if seg.Size == size {
		seg.Kind = Process
		return start
	}

	residual := m.subArena.Alloc()
	residual.Kind = Hole
	residual.Size = seg.Size - size
	residual.POff = seg.POff + size
	residual.VAddrStart = seg.VAddrStart + VAddr(size)
	residual.VAddrEnd = seg.VAddrEnd
	residual.Next = seg.Next
	residual.Prev = seg

	if seg.Next != nil {
		seg.Next.Prev = residual
	}
	seg.Next = residual

	seg.Kind = Process
	seg.Size = size
	seg.VAddrEnd = seg.VAddrStart + VAddr(size) - 1

	return start
}

// CoalesceAround merges seg, which must be a Hole, with any adjacent Hole
// neighbours in its sub-chain — forward first, then backward — restoring
// I5. At most one forward and one backward merge are ever needed because
// I5 held before seg's type changed from Process to Hole.
func (m *Map) CoalesceAround(seg *SubNode) {
	if seg.Kind != Hole {
		panic("asmap: CoalesceAround called on a non-hole segment")
	}

	for seg.Next != nil && seg.Next.Kind == Hole {
		next := seg.Next
		seg.Size += next.Size
		seg.VAddrEnd = next.VAddrEnd
		seg.Next = next.Next
		if seg.Next != nil {
			seg.Next.Prev = seg
		}
	}

	for seg.Prev != nil && seg.Prev.Kind == Hole {
		prev := seg.Prev
		prev.Size += seg.Size
		prev.VAddrEnd = seg.VAddrEnd
		prev.Next = seg.Next
		if seg.Next != nil {
			seg.Next.Prev = prev
		}
		seg = prev
	}
}

// FindByStart locates the Process segment whose VAddrStart equals v,
// across the whole chain. It is used by Free, which only accepts exact
// segment-start handles (interior addresses are not freeable).
func (m *Map) FindByStart(v VAddr) *SubNode {
	for main := m.sentinel.Next; main != m.sentinel; main = main.Next {
		for sub := main.SubHead; sub != nil; sub = sub.Next {
			if sub.VAddrStart == v && sub.Kind == Process {
				return sub
			}
		}
	}
	return nil
}

// Locate finds the segment (of either kind) whose closed virtual range
// contains v, along with its owning main node. The outer main-node range
// check is an optimisation; the inner scan is what determines
// correctness (spec.md §4.3, Translate).
func (m *Map) Locate(v VAddr) (*MainNode, *SubNode) {
	for main := m.sentinel.Next; main != m.sentinel; main = main.Next {
		if v < main.VAddrStart || v > main.VAddrEnd {
			continue
		}
		for sub := main.SubHead; sub != nil; sub = sub.Next {
			if v >= sub.VAddrStart && v <= sub.VAddrEnd {
				return main, sub
			}
		}
	}
	return nil, nil
}
