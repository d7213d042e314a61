package page

import "testing"

func TestOSProviderAcquireRelease(t *testing.T) {
	var p OSProvider
	region, err := p.Acquire(2, Size)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if len(region) != 2*Size {
		t.Fatalf("Acquire(2, Size) returned %d bytes, want %d", len(region), 2*Size)
	}
	for _, b := range region {
		if b != 0 {
			t.Fatalf("Acquire did not return zeroed memory")
		}
	}
	region[0] = 0xAB
	if err := p.Release(region, 2, Size); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestOSProviderAcquireHonoursCustomPageSize(t *testing.T) {
	var p OSProvider
	const customPageSize = 8192
	region, err := p.Acquire(3, customPageSize)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if len(region) != 3*customPageSize {
		t.Fatalf("Acquire(3, %d) returned %d bytes, want %d", customPageSize, len(region), 3*customPageSize)
	}
	if err := p.Release(region, 3, customPageSize); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestOSProviderRejectsNonPositivePages(t *testing.T) {
	var p OSProvider
	if _, err := p.Acquire(0, Size); err == nil {
		t.Fatal("Acquire(0, Size) should fail")
	}
}

func TestOSProviderRejectsNonPositivePageSize(t *testing.T) {
	var p OSProvider
	if _, err := p.Acquire(1, 0); err == nil {
		t.Fatal("Acquire(1, 0) should fail")
	}
}

func TestOSProviderReleaseSizeMismatch(t *testing.T) {
	var p OSProvider
	region, err := p.Acquire(1, Size)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := p.Release(region, 2, Size); err == nil {
		t.Fatal("Release with mismatched page count should fail")
	}
	// Release with the correct count so we don't leak the mapping.
	if err := p.Release(region, 1, Size); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestFakeProviderTracksAcquired(t *testing.T) {
	f := &FakeProvider{}
	r1, err := f.Acquire(1, Size)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	r2, err := f.Acquire(3, Size)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if len(f.Acquired) != 2 {
		t.Fatalf("expected 2 outstanding regions, got %d", len(f.Acquired))
	}
	if err := f.Release(r1, 1, Size); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(f.Acquired) != 1 {
		t.Fatalf("expected 1 outstanding region after release, got %d", len(f.Acquired))
	}
	if err := f.Release(r2, 3, Size); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(f.Acquired) != 0 {
		t.Fatalf("expected 0 outstanding regions after releasing all, got %d", len(f.Acquired))
	}
}

func TestFakeProviderHonoursCustomPageSize(t *testing.T) {
	f := &FakeProvider{}
	const customPageSize = 1024
	region, err := f.Acquire(2, customPageSize)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if len(region) != 2*customPageSize {
		t.Fatalf("Acquire(2, %d) returned %d bytes, want %d", customPageSize, len(region), 2*customPageSize)
	}
	if err := f.Release(region, 2, customPageSize); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestFakeProviderFailing(t *testing.T) {
	f := &FakeProvider{Failing: true}
	if _, err := f.Acquire(1, Size); err == nil {
		t.Fatal("Acquire should fail when Failing is set")
	}
}
