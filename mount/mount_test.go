package mount

import (
	"testing"

	"github.com/baraverkstad/rcstorage/path"
)

func rec(mountPath string, priority int, mountTime int64) Record {
	return Record{Path: path.MustParse(mountPath), Priority: priority, MountTime: mountTime}
}

func TestNextMountTimeIsMonotonic(t *testing.T) {
	a := NextMountTime()
	b := NextMountTime()
	if b <= a {
		t.Fatalf("NextMountTime not monotonic: %d then %d", a, b)
	}
}

func TestTableOrdersByPriorityThenMountTime(t *testing.T) {
	tbl := NewTable()
	tbl.Add(rec("/storage/low/", 1, 10))
	tbl.Add(rec("/storage/high/", 5, 20))
	tbl.Add(rec("/storage/earlier/", 5, 5))

	all := tbl.All()
	if len(all) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(all))
	}
	if all[0].Path.String() != "/storage/earlier/" {
		t.Fatalf("first record = %s, want /storage/earlier/ (same priority, earlier mount time)", all[0].Path)
	}
	if all[1].Path.String() != "/storage/high/" {
		t.Fatalf("second record = %s, want /storage/high/", all[1].Path)
	}
	if all[2].Path.String() != "/storage/low/" {
		t.Fatalf("third record = %s, want /storage/low/ (lowest priority last)", all[2].Path)
	}
}

func TestFindAndRemove(t *testing.T) {
	tbl := NewTable()
	p := path.MustParse("/storage/m/")
	tbl.Add(rec("/storage/m/", 0, 1))

	if _, ok := tbl.Find(p); !ok {
		t.Fatalf("Find did not locate the mounted record")
	}
	removed, ok := tbl.Remove(p)
	if !ok || removed.Path.String() != "/storage/m/" {
		t.Fatalf("Remove returned ok=%v record=%v", ok, removed)
	}
	if _, ok := tbl.Find(p); ok {
		t.Fatalf("record still present after Remove")
	}
}

func TestReplaceResorts(t *testing.T) {
	tbl := NewTable()
	tbl.Add(rec("/storage/a/", 1, 1))
	tbl.Add(rec("/storage/b/", 2, 2))

	updated := rec("/storage/a/", 10, 1)
	if !tbl.Replace(updated) {
		t.Fatalf("Replace did not find the existing record")
	}
	if tbl.All()[0].Path.String() != "/storage/a/" {
		t.Fatalf("Replace did not re-sort after raising priority")
	}
}

func TestReverseAll(t *testing.T) {
	tbl := NewTable()
	tbl.Add(rec("/storage/a/", 5, 1))
	tbl.Add(rec("/storage/b/", 1, 1))

	forward := tbl.All()
	reverse := tbl.ReverseAll()
	n := len(forward)
	for i := range forward {
		if !forward[i].Path.Equal(reverse[n-1-i].Path) {
			t.Fatalf("ReverseAll is not the mirror of All()")
		}
	}
}

func TestMatchingStorage(t *testing.T) {
	tbl := NewTable()
	tbl.Add(rec("/storage/a/", 0, 1))
	tbl.Add(rec("/storage/b/", 0, 2))

	matches := tbl.MatchingStorage(path.MustParse("/storage/a/sub"))
	if len(matches) != 1 || matches[0].Path.String() != "/storage/a/" {
		t.Fatalf("MatchingStorage = %#v, want only /storage/a/", matches)
	}
}

func TestMatchingOverlay(t *testing.T) {
	tbl := NewTable()
	withOverlay := rec("/storage/a/", 0, 1)
	withOverlay.HasOverlay = true
	withOverlay.Overlay = path.MustParse("/content/")
	tbl.Add(withOverlay)
	tbl.Add(rec("/storage/b/", 0, 2))

	matches := tbl.MatchingOverlay(path.MustParse("/content/sub"))
	if len(matches) != 1 || matches[0].Path.String() != "/storage/a/" {
		t.Fatalf("MatchingOverlay = %#v, want only the overlaid /storage/a/ record", matches)
	}
}
