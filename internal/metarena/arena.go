// Package metarena implements the bump allocators that hand out the
// allocator's own metadata records (main-chain and sub-chain nodes).
//
// It must not call back into the main allocator — that would be
// recursive — so each arena manages its own chain of pages obtained
// directly from a page.Provider, bumping a cursor through the current
// page and requesting a fresh one when a record would not fit. Records
// are never freed individually; the arena's lifetime is the process's.
//
// This mirrors the teacher's mem.Physmem_t free-list bootstrap and its
// unsafe.Pointer reinterpretation of a raw page as a typed record
// (Pg2bytes/Bytepg2pg): a record is placed directly in provider-owned
// bytes rather than allocated on the Go heap, so that metadata growth is
// counted in whole provider pages (see Pages). PrintStats's page count
// covers only the data regions, not these pages.
package metarena

import (
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/mrkrishnaaggarwal/mems/internal/page"
)

// RecordSize is the padded size, in bytes, of every record handed out by
// an arena, chosen so that an integral number fit per page — the same
// motivation as original_source/mems.h's "int padding[...]; // to make it
// 64 bytes" comment. Go's slice headers (24 bytes for the region's Phys
// field) and fatter pointers mean a literal 64 is too tight for MainNode
// once the owning region is tracked as a []byte rather than a bare
// void*, so the slot is widened to the next convenient page divisor.
const RecordSize = 128

// Arena is a bump allocator over provider-backed pages. It hands out
// *T pointers carved directly out of those pages; T must fit within
// RecordSize bytes.
type Arena[T any] struct {
	provider  page.Provider
	kind      string
	cur       []byte
	cursor    int
	pageCount int
}

// New creates an arena that draws pages from provider. kind is used only
// for diagnostics (which arena — main or sub — failed). It panics if T
// does not fit within a single record slot; that is a programmer error,
// not a runtime condition.
func New[T any](provider page.Provider, kind string) *Arena[T] {
	var zero T
	if unsafe.Sizeof(zero) > RecordSize {
		panic("metarena: record type does not fit in a RecordSize slot")
	}
	if page.Size%RecordSize != 0 {
		panic("metarena: page size must be a multiple of the record size")
	}
	return &Arena[T]{provider: provider, kind: kind}
}

// Alloc returns a fresh, zeroed *T, carved from the current page or a
// newly acquired one. It never returns nil: provider failure is fatal,
// per spec.md's environmental-failure policy, and terminates the process
// after logging a diagnostic.
func (a *Arena[T]) Alloc() *T {
	if a.cur == nil || a.cursor+RecordSize > len(a.cur) {
		region, err := a.provider.Acquire(1, page.Size)
		if err != nil {
			logrus.WithError(err).WithField("arena", a.kind).Fatal("mems: metadata arena failed to acquire a page")
		}
		a.cur = region
		a.cursor = 0
		a.pageCount++
	}
	slot := a.cur[a.cursor : a.cursor+RecordSize : a.cursor+RecordSize]
	a.cursor += RecordSize
	return (*T)(unsafe.Pointer(&slot[0]))
}

// Pages reports how many pages this arena has drawn from its provider,
// for print_stats-style diagnostics.
func (a *Arena[T]) Pages() int { return a.pageCount }
