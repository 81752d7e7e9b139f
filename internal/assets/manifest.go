package assets

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// BuildManifest maps every file's URL to its hash.
func BuildManifest(files []*AssetFile) Manifest {
	m := make(Manifest, len(files))
	for _, f := range files {
		m[f.URL] = f.Hash
	}
	return m
}

// Hashes returns the distinct hashes in the manifest, sorted.
func (m Manifest) Hashes() []string {
	set := mapset.NewThreadUnsafeSetWithSize[string](len(m))
	for _, h := range m {
		set.Add(h)
	}
	hashes := set.ToSlice()
	slices.Sort(hashes)
	return hashes
}

// uniqueHashes returns the distinct hashes of files, in first-seen order.
func uniqueHashes(files []*AssetFile) []string {
	seen := mapset.NewThreadUnsafeSetWithSize[string](len(files))
	hashes := make([]string, 0, len(files))
	for _, f := range files {
		if seen.Add(f.Hash) {
			hashes = append(hashes, f.Hash)
		}
	}
	return hashes
}

// uniqueByHash keeps the first file for each hash. Identical content only
// needs to travel once.
func uniqueByHash(files []*AssetFile) []*AssetFile {
	seen := mapset.NewThreadUnsafeSetWithSize[string](len(files))
	out := make([]*AssetFile, 0, len(files))
	for _, f := range files {
		if seen.Add(f.Hash) {
			out = append(out, f)
		}
	}
	return out
}
