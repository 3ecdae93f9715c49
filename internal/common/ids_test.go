// internal/common/ids_test.go
package common

import "testing"

func TestSampleID(t *testing.T) {
	cases := map[string]string{
		"/data/run/QC_01.mzML": "QC_01",
		"plasma_a.mzml":        "plasma_a",
		"bare":                 "bare",
	}
	for in, want := range cases {
		if got := SampleID(in); got != want {
			t.Errorf("SampleID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewRunIDUnique(t *testing.T) {
	if NewRunID() == NewRunID() {
		t.Fatal("run ids must differ")
	}
}
