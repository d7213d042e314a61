// Package mems implements MeMS, a user-space memory allocator that
// manages a private virtual address space distinct from the host
// process's. Clients request memory through Malloc, receive an opaque
// VAddr handle, and translate that handle on demand into a real machine
// pointer via Translate.
//
// The allocator is the façade described in spec.md §4.3: it owns the two
// metadata bump arenas (internal/metarena), the address-space map
// (internal/asmap), and a page.Provider, and implements first-fit
// search, splitting, coalescing and translation on top of them. It is
// single-threaded and not reentrant — see spec.md §5 — the same
// contract the teacher's kernel packages document on their locked
// structures, minus the lock, since nothing here runs concurrently.
package mems

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/mrkrishnaaggarwal/mems/internal/asmap"
	"github.com/mrkrishnaaggarwal/mems/internal/metarena"
	"github.com/mrkrishnaaggarwal/mems/internal/page"
	"github.com/mrkrishnaaggarwal/mems/internal/util"
	pprofdump "github.com/mrkrishnaaggarwal/mems/profile"
)

// VAddr is the type of handles returned by Malloc and accepted by Free
// and Translate.
type VAddr = asmap.VAddr

// NullVAddr is the sentinel "no handle" value: Malloc returns it for an
// invalid size, and Free treats it as a no-op. (Translate reports a hole
// or an address outside the map through its boolean result instead.)
const NullVAddr VAddr = 0

// Config holds the two build-time tunables spec.md §6 fixes as
// compile-time constants in the reference implementation. Go has no
// preprocessor, so they are instead fixed for the lifetime of one
// Allocator, which preserves "fixed for any given build" in spirit.
type Config struct {
	// PageSize is the fixed page size in bytes (reference value 4096).
	PageSize int
	// Base is the first virtual address ever handed out (reference
	// value 1000).
	Base VAddr
}

// DefaultConfig returns the reference constants from spec.md §6.
func DefaultConfig() Config {
	return Config{PageSize: page.Size, Base: 1000}
}

// Allocator is one MeMS instance. Its zero value is not usable; build
// one with New.
type Allocator struct {
	cfg       Config
	provider  page.Provider
	mainArena *metarena.Arena[asmap.MainNode]
	subArena  *metarena.Arena[asmap.SubNode]
	m         *asmap.Map
}

// New initializes a MeMS instance: spec.md §4.3's init. It creates both
// metadata arenas and the sentinel main node. provider supplies the
// backing pages; pass page.OSProvider{} for a real process, or a fake in
// tests.
func New(cfg Config, provider page.Provider) *Allocator {
	if cfg.PageSize <= 0 {
		panic("mems: Config.PageSize must be positive")
	}
	mainArena := metarena.New[asmap.MainNode](provider, "main")
	subArena := metarena.New[asmap.SubNode](provider, "sub")
	return &Allocator{
		cfg:       cfg,
		provider:  provider,
		mainArena: mainArena,
		subArena:  subArena,
		m:         asmap.New(cfg.Base, mainArena, subArena),
	}
}

// Malloc allocates size bytes and returns a MeMS virtual handle, or
// NullVAddr if size is zero. It first-fit searches existing holes across
// the whole main chain; if none fits, it grows the map by a fresh
// region sized to ceil(size/PageSize) pages.
func (a *Allocator) Malloc(size int) VAddr {
	if size <= 0 {
		logrus.WithField("size", size).Warn("mems: malloc: invalid size")
		return NullVAddr
	}

	sentinel := a.m.Sentinel()
	for main := sentinel.Next; main != sentinel; main = main.Next {
		for sub := main.SubHead; sub != nil; sub = sub.Next {
			if sub.Kind == asmap.Hole && sub.Size >= size {
				return a.m.SplitHole(sub, size)
			}
		}
	}
	return a.grow(size)
}

func (a *Allocator) grow(size int) VAddr {
	pages := util.CeilDiv(size, a.cfg.PageSize)
	phys, err := a.provider.Acquire(pages, a.cfg.PageSize)
	if err != nil {
		logrus.WithError(err).Fatal("mems: malloc: page provider acquire failed")
	}

	main := a.m.AppendRegion(pages, phys)

	proc := a.m.NewSubNode()
	proc.Kind = asmap.Process
	proc.Size = size
	proc.POff = 0
	proc.VAddrStart = main.VAddrStart
	proc.VAddrEnd = main.VAddrStart + VAddr(size) - 1
	proc.Prev = nil

	regionBytes := pages * a.cfg.PageSize
	if size != regionBytes {
		hole := a.m.NewSubNode()
		hole.Kind = asmap.Hole
		hole.Size = regionBytes - size
		hole.POff = size
		hole.VAddrStart = proc.VAddrEnd + 1
		hole.VAddrEnd = main.VAddrEnd
		hole.Prev = proc
		hole.Next = nil
		proc.Next = hole
	} else {
		proc.Next = nil
	}

	main.SubHead = proc
	return proc.VAddrStart
}

// Free releases the allocation at v, which must be a handle returned by
// Malloc and not yet freed. Freeing NullVAddr is a no-op. Freeing an
// unrecognized handle (not an exact, still-live Process segment start)
// logs a diagnostic and otherwise does nothing — no panic, no partial
// state change.
func (a *Allocator) Free(v VAddr) {
	if v == NullVAddr {
		return
	}
	seg := a.m.FindByStart(v)
	if seg == nil {
		logrus.WithField("vaddr", uint64(v)).Warn("mems: free: unknown address")
		return
	}
	seg.Kind = asmap.Hole
	a.m.CoalesceAround(seg)
}

// Translate maps a MeMS virtual handle (or any interior address within a
// live allocation) to a slice view of the real backing memory, starting
// at that address and running to the end of its segment — the same
// "address onward" shape as the teacher's Dmap8. It returns (nil, false)
// if v lies in a hole or outside the map entirely.
func (a *Allocator) Translate(v VAddr) ([]byte, bool) {
	main, sub := a.m.Locate(v)
	if sub == nil || sub.Kind != asmap.Process {
		return nil, false
	}
	off := int(v - sub.VAddrStart)
	return main.Phys[sub.POff+off : sub.POff+sub.Size], true
}

// PrintStats writes the chain rendering and summary lines mandated by
// spec.md §6 to w. The text is part of the external contract: fields are
// never reordered and decimal widths are never changed.
func (a *Allocator) PrintStats(w io.Writer) {
	sentinel := a.m.Sentinel()
	if sentinel.Next == sentinel {
		fmt.Fprintln(w, "MeMS Status: No pages allocated.")
		return
	}

	var pagesUsed, holeBytes, chainLen int
	for main := sentinel.Next; main != sentinel; main = main.Next {
		chainLen++
		pagesUsed += main.NumPages
		fmt.Fprintf(w, "MAIN[%d:%d]-> ", main.VAddrStart, main.VAddrEnd)
		for sub := main.SubHead; sub != nil; sub = sub.Next {
			fmt.Fprintf(w, "%s[%d:%d](%d) <-> ", sub.Kind, sub.VAddrStart, sub.VAddrEnd, sub.Size)
			if sub.Kind == asmap.Hole {
				holeBytes += sub.Size
			}
		}
		fmt.Fprintln(w, "NULL")
	}
	fmt.Fprintf(w, "Pages used: %d\n", pagesUsed)
	fmt.Fprintf(w, "Space unused: %d bytes\n", holeBytes)
	fmt.Fprintf(w, "Main chain length: %d\n", chainLen)
}

// DumpProfile writes the current set of live Process segments as a
// pprof profile (SPEC_FULL.md's supplemental diagnostic). It does not
// affect PrintStats's mandated text.
func (a *Allocator) DumpProfile(w io.Writer) error {
	var segs []pprofdump.Segment
	sentinel := a.m.Sentinel()
	for main := sentinel.Next; main != sentinel; main = main.Next {
		for sub := main.SubHead; sub != nil; sub = sub.Next {
			if sub.Kind != asmap.Process {
				continue
			}
			segs = append(segs, pprofdump.Segment{
				Region:     fmt.Sprintf("%d:%d", main.VAddrStart, main.VAddrEnd),
				VAddrStart: uint64(sub.VAddrStart),
				Size:       int64(sub.Size),
			})
		}
	}
	return pprofdump.Dump(w, segs)
}

// Finish releases every backing region to the page provider and resets
// the main chain to empty. Metadata arena pages are not released — their
// lifetime is the process's, per spec.md §4.3 and §9.
func (a *Allocator) Finish() {
	sentinel := a.m.Sentinel()
	for main := sentinel.Next; main != sentinel; {
		next := main.Next
		if err := a.provider.Release(main.Phys, main.NumPages, a.cfg.PageSize); err != nil {
			logrus.WithError(err).Fatal("mems: finish: page provider release failed")
		}
		main = next
	}
	a.m.Reset()
}
