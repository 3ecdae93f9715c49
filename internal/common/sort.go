// internal/common/sort.go
package common

import (
	"sort"

	"mzflow-core/align"
)

// LessFeature defines the stable output order for consensus features
// (m/z, rt, id).
func LessFeature(a, b *align.Feature) bool {
	if a.MZ != b.MZ {
		return a.MZ < b.MZ
	}
	if a.RT != b.RT {
		return a.RT < b.RT
	}
	return a.ID < b.ID
}

func SortFeatures(fs []*align.Feature) {
	sort.SliceStable(fs, func(i, j int) bool { return LessFeature(fs[i], fs[j]) })
}
