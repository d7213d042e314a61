// Package page abstracts acquiring and releasing page-aligned, zeroed
// regions of machine memory — the one external collaborator the allocator
// cannot simulate itself. Everything above this package treats page
// acquisition as synchronous and either-succeeds-or-fatal.
package page

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Size is the default page size in bytes: the one internal/metarena
// always requests, since the metadata arenas have nothing to do with a
// caller's configured allocation granularity. Unlike the host's real
// page size, this is a build-time constant so that statistics stay
// reproducible across machines.
const Size = 4096

// Provider supplies page-aligned regions and releases them. pageSize is
// passed explicitly on every call rather than fixed on the provider,
// so a single OSProvider/FakeProvider value can back both the
// metarena's fixed-Size metadata pages and an Allocator's independently
// configured Config.PageSize (spec.md §6's tunable constant) without
// the two ever disagreeing on region length.
//
// Acquire must return a region of exactly pages*pageSize zeroed,
// readable and writable bytes, or a non-nil error. Release must be
// called at most once per region returned by Acquire, with the same
// page count and page size.
type Provider interface {
	Acquire(pages, pageSize int) ([]byte, error)
	Release(region []byte, pages, pageSize int) error
}

// OSProvider obtains memory directly from the operating system via
// anonymous private mmap mappings, the same mechanism
// original_source/mems.h uses through mmap(2)/munmap(2).
type OSProvider struct{}

// Acquire maps pages*pageSize bytes of fresh, zeroed memory.
func (OSProvider) Acquire(pages, pageSize int) ([]byte, error) {
	if pages <= 0 {
		return nil, errors.Errorf("page: acquire requires a positive page count, got %d", pages)
	}
	if pageSize <= 0 {
		return nil, errors.Errorf("page: acquire requires a positive page size, got %d", pageSize)
	}
	region, err := unix.Mmap(-1, 0, pages*pageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, errors.Wrap(err, "page: mmap failed")
	}
	return region, nil
}

// Release unmaps a region previously returned by Acquire.
func (OSProvider) Release(region []byte, pages, pageSize int) error {
	if len(region) != pages*pageSize {
		return errors.Errorf("page: release size mismatch: got %d bytes, want %d", len(region), pages*pageSize)
	}
	if err := unix.Munmap(region); err != nil {
		return errors.Wrap(err, "page: munmap failed")
	}
	return nil
}
