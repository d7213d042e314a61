package mems_test

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/mrkrishnaaggarwal/mems"
	"github.com/mrkrishnaaggarwal/mems/internal/page"
)

// TestAllocatorInvariantsHoldAfterRandomSequences drives random malloc/free
// sequences. After every single operation it checks that a fresh handle
// translates to exactly its requested size (P4) and that a freed handle
// no longer translates (P5); at the end it checks that every still-live
// handle translates.
func TestAllocatorInvariantsHoldAfterRandomSequences(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := mems.New(mems.Config{PageSize: page.Size, Base: 1000}, &page.FakeProvider{})

		var live []mems.VAddr
		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(live) == 0 || rapid.Bool().Draw(t, "doMalloc") {
				size := rapid.IntRange(1, 3*page.Size).Draw(t, "size")
				v := a.Malloc(size)
				if v != mems.NullVAddr {
					mem, ok := a.Translate(v)
					if !ok {
						t.Fatalf("P4 violated: fresh allocation %d did not translate", v)
					}
					if len(mem) != size {
						t.Fatalf("P4 violated: translate of %d returned %d bytes, want %d", v, len(mem), size)
					}
					live = append(live, v)
				}
			} else {
				idx := rapid.IntRange(0, len(live)-1).Draw(t, "freeIdx")
				v := live[idx]
				a.Free(v)
				live = append(live[:idx], live[idx+1:]...)

				if _, ok := a.Translate(v); ok {
					t.Fatalf("P5 violated: %d still translates after Free", v)
				}
			}
		}

		for _, v := range live {
			if _, ok := a.Translate(v); !ok {
				t.Fatalf("P6 violated: live allocation %d lost after further operations", v)
			}
		}

		a.Finish()
	})
}
