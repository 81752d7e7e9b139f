package assets

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// FilterMissing keeps the files whose hash is in missing, largest first.
// Files of equal size keep their input order.
func FilterMissing(files []*AssetFile, missing []string) []*AssetFile {
	missingSet := mapset.NewThreadUnsafeSet(missing...)

	out := make([]*AssetFile, 0, len(missing))
	for _, f := range files {
		if missingSet.Contains(f.Hash) {
			out = append(out, f)
		}
	}

	slices.SortStableFunc(out, func(a, b *AssetFile) int {
		switch {
		case a.Size > b.Size:
			return -1
		case a.Size < b.Size:
			return 1
		default:
			return 0
		}
	})
	return out
}
