package index

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ManifestFileName is the ledger of source display names represented in the
// knowledge index, co-located with the persisted store.
const ManifestFileName = "sources.json"

// Manifest is a sorted set of distinct source display names.
type Manifest []string

// NewManifest builds a manifest from names, deduplicating and sorting.
func NewManifest(names ...string) Manifest {
	return Manifest(nil).Union(names...)
}

// LoadManifest reads the manifest in dir. A missing file is an empty
// manifest, not an error.
func LoadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Save writes the manifest into dir.
func (m Manifest) Save(dir string) error {
	if m == nil {
		m = Manifest{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0o644)
}

// Union returns the sorted set union of m and names.
func (m Manifest) Union(names ...string) Manifest {
	set := make(map[string]struct{}, len(m)+len(names))
	for _, n := range m {
		set[n] = struct{}{}
	}
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	out := make(Manifest, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether name is present.
func (m Manifest) Contains(name string) bool {
	i := sort.SearchStrings(m, name)
	return i < len(m) && m[i] == name
}
