// Package mount holds the mount record type and the ordered MountTable
// used by RootStorage to resolve overlay precedence.
package mount

import (
	"sort"
	"sync/atomic"

	"github.com/baraverkstad/rcstorage/path"
	"github.com/baraverkstad/rcstorage/registry/storage/driver"
)

var mountClock int64

// NextMountTime returns a process-scoped, strictly monotonic timestamp
// for use as a mount record's mount time. Its only contract is strict
// monotonicity — callers must not treat it as wall-clock time.
func NextMountTime() int64 {
	return atomic.AddInt64(&mountClock, 1)
}

// Record attaches a Backend to a mount path, with the read-write flag,
// optional overlay projection and priority, and the mount time used to
// break priority ties.
type Record struct {
	Backend    driver.Backend
	Path       path.Path
	ReadWrite  bool
	HasOverlay bool
	Overlay    path.Path
	Priority   int
	MountTime  int64
}

// Less orders records by the table's precedence rule: higher priority
// first, earlier mount time first on a tie.
func (r Record) Less(other Record) bool {
	if r.Priority != other.Priority {
		return r.Priority > other.Priority
	}
	return r.MountTime < other.MountTime
}

// Table is an ordered collection of mount Records, kept sorted by
// precedence after every mutation.
type Table struct {
	records []Record
}

// NewTable constructs an empty Table.
func NewTable() *Table {
	return &Table{}
}

// Add inserts r and re-sorts the table.
func (t *Table) Add(r Record) {
	t.records = append(t.records, r)
	t.sort()
}

// Remove deletes the record mounted at p, if any, and returns it.
func (t *Table) Remove(p path.Path) (Record, bool) {
	for i, r := range t.records {
		if r.Path.Equal(p) {
			removed := r
			t.records = append(t.records[:i], t.records[i+1:]...)
			return removed, true
		}
	}
	return Record{}, false
}

// Find returns the record mounted exactly at p.
func (t *Table) Find(p path.Path) (Record, bool) {
	for _, r := range t.records {
		if r.Path.Equal(p) {
			return r, true
		}
	}
	return Record{}, false
}

// Replace swaps the record whose Path matches updated.Path for updated,
// then re-sorts.
func (t *Table) Replace(updated Record) bool {
	for i, r := range t.records {
		if r.Path.Equal(updated.Path) {
			t.records[i] = updated
			t.sort()
			return true
		}
	}
	return false
}

// All returns every record in precedence order.
func (t *Table) All() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// ReverseAll returns every record in reverse precedence order, used for
// unmountAll so the lowest-precedence mount is torn down first.
func (t *Table) ReverseAll() []Record {
	all := t.All()
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all
}

// MatchingStorage returns every record whose mount Path is a prefix of p,
// in precedence order — used for the /storage/ namespace dispatch.
func (t *Table) MatchingStorage(p path.Path) []Record {
	var out []Record
	for _, r := range t.records {
		if p.StartsWith(r.Path) {
			out = append(out, r)
		}
	}
	return out
}

// MatchingOverlay returns every record whose overlay path is a prefix of
// p, in precedence order — used for overlay-namespace dispatch.
func (t *Table) MatchingOverlay(p path.Path) []Record {
	var out []Record
	for _, r := range t.records {
		if r.HasOverlay && p.StartsWith(r.Overlay) {
			out = append(out, r)
		}
	}
	return out
}

func (t *Table) sort() {
	sort.SliceStable(t.records, func(i, j int) bool {
		return t.records[i].Less(t.records[j])
	})
}
