package page

import "github.com/pkg/errors"

// FakeProvider is an in-process stand-in for OSProvider, used by tests so
// that the allocator's split/coalesce/translate logic can be exercised
// without a real mmap call. It tracks outstanding regions so that a test
// can assert Finish released exactly what it acquired.
type FakeProvider struct {
	Acquired [][]byte
	Failing  bool
}

// Acquire returns a zeroed Go-heap-backed region of pages*pageSize bytes.
func (f *FakeProvider) Acquire(pages, pageSize int) ([]byte, error) {
	if f.Failing {
		return nil, errors.New("page: fake provider configured to fail")
	}
	if pages <= 0 {
		return nil, errors.Errorf("page: acquire requires a positive page count, got %d", pages)
	}
	if pageSize <= 0 {
		return nil, errors.Errorf("page: acquire requires a positive page size, got %d", pageSize)
	}
	region := make([]byte, pages*pageSize)
	f.Acquired = append(f.Acquired, region)
	return region, nil
}

// Release removes region from the set of outstanding regions.
func (f *FakeProvider) Release(region []byte, pages, pageSize int) error {
	if f.Failing {
		return errors.New("page: fake provider configured to fail")
	}
	if len(region) != pages*pageSize {
		return errors.Errorf("page: release size mismatch: got %d bytes, want %d", len(region), pages*pageSize)
	}
	for i, r := range f.Acquired {
		if &r[0] == &region[0] {
			f.Acquired = append(f.Acquired[:i], f.Acquired[i+1:]...)
			return nil
		}
	}
	return errors.New("page: release of region never acquired")
}
