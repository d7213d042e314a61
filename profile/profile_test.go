package profile

import (
	"bytes"
	"testing"

	gprofile "github.com/google/pprof/profile"
)

func TestDumpProducesAParseableProfile(t *testing.T) {
	var buf bytes.Buffer
	segs := []Segment{
		{Region: "1000:5095", VAddrStart: 1000, Size: 1000},
		{Region: "1000:5095", VAddrStart: 3000, Size: 500},
	}
	if err := Dump(&buf, segs); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	got, err := gprofile.Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got.Sample) != len(segs) {
		t.Fatalf("got %d samples, want %d", len(got.Sample), len(segs))
	}
	for i, s := range got.Sample {
		if s.Value[0] != segs[i].Size {
			t.Errorf("sample %d value = %d, want %d", i, s.Value[0], segs[i].Size)
		}
	}
}

func TestDumpEmptyIsStillValid(t *testing.T) {
	var buf bytes.Buffer
	if err := Dump(&buf, nil); err != nil {
		t.Fatalf("Dump(nil): %v", err)
	}
	if _, err := gprofile.Parse(&buf); err != nil {
		t.Fatalf("Parse of empty dump: %v", err)
	}
}
