package scan

import (
	"sort"
	"time"
)

// Kind classifies a directory entry.
type Kind uint8

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// ObjectInfo is one filesystem entry as seen by a scan. Size and ModTime
// are valid only once Enriched is set; the listing phase produces bare
// entries and the enrichment phase fills them in.
type ObjectInfo struct {
	Path     string
	Name     string
	Kind     Kind
	Size     int64
	ModTime  time.Time
	Enriched bool
	Gen      uint64
}

// IsDir reports whether the entry is a directory.
func (o ObjectInfo) IsDir() bool { return o.Kind == KindDir }

// UpdateKind tags a scan stream update.
type UpdateKind uint8

const (
	// UpdateEntry carries a newly listed entry.
	UpdateEntry UpdateKind = iota
	// UpdateEnriched carries an entry whose size/mtime were resolved.
	UpdateEnriched
	// UpdateError reports a per-entry failure; the scan continues.
	UpdateError
	// UpdateCompleted terminates the stream with the total entry count.
	// A cancelled scan ends without it.
	UpdateCompleted
)

// Update is one element of a scan stream.
type Update struct {
	Kind    UpdateKind
	Gen     uint64
	Entry   ObjectInfo // UpdateEntry, UpdateEnriched
	Path    string     // UpdateError
	Message string     // UpdateError
	Total   int        // UpdateCompleted
}

// Less orders a before b: directories sort before files, then
// lexicographically by display name within each group.
func Less(a, b ObjectInfo) bool {
	if ad, bd := a.IsDir(), b.IsDir(); ad != bd {
		return ad
	}
	return a.Name < b.Name
}

// SortEntries sorts entries in place into display order.
func SortEntries(entries []ObjectInfo) {
	sort.SliceStable(entries, func(i, j int) bool {
		return Less(entries[i], entries[j])
	})
}

// InsertSorted places e at its sorted position in entries and returns the
// slice and the insertion index. Panes use it to apply incremental Entry
// updates without re-sorting.
func InsertSorted(entries []ObjectInfo, e ObjectInfo) ([]ObjectInfo, int) {
	i := sort.Search(len(entries), func(i int) bool {
		return !Less(entries[i], e)
	})
	entries = append(entries, ObjectInfo{})
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	return entries, i
}
