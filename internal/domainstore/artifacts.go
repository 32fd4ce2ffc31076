// SPDX-License-Identifier: MIT

package domainstore

import "github.com/puzpuzpuz/xsync/v4"

// ArtifactTable records uploaded artifacts for one session, keyed by logical
// path. Duplicate paths are last-writer-wins. The table is written by the
// sink on every successful upload and read once at session finalisation.
type ArtifactTable struct {
	entries *xsync.Map[string, string]
}

// NewArtifactTable creates an empty table.
func NewArtifactTable() *ArtifactTable {
	return &ArtifactTable{entries: xsync.NewMap[string, string]()}
}

// Record stores the storage id for a logical path.
func (t *ArtifactTable) Record(relPath, dataID string) {
	t.entries.Store(relPath, dataID)
}

// Len returns the number of distinct logical paths.
func (t *ArtifactTable) Len() int {
	return t.entries.Size()
}

// Snapshot returns a plain map copy for the terminal complete call.
func (t *ArtifactTable) Snapshot() map[string]string {
	out := make(map[string]string, t.entries.Size())
	t.entries.Range(func(k, v string) bool {
		out[k] = v
		return true
	})
	return out
}
