package model

import (
	"maps"
	"slices"
	"strings"
)

// CopyEntry is the destination object created for one source path.
type CopyEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CopyMap maps a "/"-separated path relative to the source folder to the
// object created for it at the destination. Entries are only ever added.
type CopyMap map[string]CopyEntry

func (m CopyMap) Clone() CopyMap {
	if m == nil {
		return CopyMap{}
	}

	return maps.Clone(m)
}

func (m CopyMap) Has(path string) bool {
	_, ok := m[path]
	return ok
}

// PathsDeepestFirst orders the keys so that everything inside a folder comes
// before the folder itself.
func (m CopyMap) PathsDeepestFirst() []string {
	paths := slices.Collect(maps.Keys(m))
	slices.SortFunc(paths, func(a, b string) int {
		da, db := strings.Count(a, "/"), strings.Count(b, "/")
		if da != db {
			return db - da
		}
		return strings.Compare(a, b)
	})

	return paths
}

// JoinPath builds the relative path of a child named name under base.
func JoinPath(base, name string) string {
	if base == "" {
		return name
	}

	return base + "/" + name
}
