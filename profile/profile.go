// Package profile renders the allocator's live segments as a pprof heap
// profile, so that `go tool pprof` can be pointed at a running MeMS
// instance's allocation pattern. This is a supplemental diagnostic
// (SPEC_FULL.md, "DumpProfile"); spec.md's PrintStats text format is
// untouched by it.
package profile

import (
	"fmt"
	"io"

	"github.com/google/pprof/profile"
)

// Segment describes one live allocation for profiling purposes. It is a
// plain value type so this package does not need to import the
// allocator's internal node types.
type Segment struct {
	// Region labels which backing region the segment lives in, e.g.
	// "1000:5095".
	Region     string
	VAddrStart uint64
	Size       int64
}

// Dump writes segs as a pprof profile to w: one sample per live segment,
// with a single "bytes" value type. The profile is valid input to
// `go tool pprof`.
func Dump(w io.Writer, segs []Segment) error {
	mapping := &profile.Mapping{ID: 1, File: "mems"}
	fn := &profile.Function{ID: 1, Name: "mems.Segment"}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "bytes", Unit: "bytes"}},
		PeriodType: &profile.ValueType{Type: "space", Unit: "bytes"},
		Period:     1,
		Mapping:    []*profile.Mapping{mapping},
		Function:   []*profile.Function{fn},
	}

	for i, s := range segs {
		loc := &profile.Location{
			ID:      uint64(i + 1),
			Mapping: mapping,
			Address: s.VAddrStart,
			Line:    []profile.Line{{Function: fn, Line: 1}},
		}
		p.Location = append(p.Location, loc)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{s.Size},
			Label:    map[string][]string{"region": {s.Region}},
		})
	}

	if err := p.CheckValid(); err != nil {
		return fmt.Errorf("profile: built an invalid pprof profile: %w", err)
	}
	return p.Write(w)
}
