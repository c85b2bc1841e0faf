package scoredb

import (
	"reflect"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestScoreLookup(t *testing.T) {
	db := openTestDB(t)

	if err := db.InsertScore("1", 100, "A", "T", "", 2.5); err != nil {
		t.Fatal(err)
	}

	v := db.Score("E1", "1", 100, "A", "T")
	if !v.Valid || v.Float64 != 2.5 {
		t.Errorf("got %+v, want valid 2.5", v)
	}

	for _, miss := range []struct {
		chrom    string
		pos      int
		ref, alt string
	}{
		{"1", 101, "A", "T"},
		{"1", 100, "A", "C"},
		{"2", 100, "A", "T"},
	} {
		if v := db.Score("E1", miss.chrom, miss.pos, miss.ref, miss.alt); v.Valid {
			t.Errorf("Score(%s:%d %s>%s): got %+v, want invalid", miss.chrom, miss.pos, miss.ref, miss.alt, v)
		}
	}
}

// Element-tagged scores resolve only for their element; untagged scores
// resolve everywhere.
func TestScoreElementScoping(t *testing.T) {
	db := openTestDB(t)

	if err := db.InsertScore("1", 200, "C", "G", "E1", 1.5); err != nil {
		t.Fatal(err)
	}

	if v := db.Score("E1", "1", 200, "C", "G"); !v.Valid || v.Float64 != 1.5 {
		t.Errorf("own element: got %+v, want valid 1.5", v)
	}
	if v := db.Score("E2", "1", 200, "C", "G"); v.Valid {
		t.Errorf("foreign element: got %+v, want invalid", v)
	}
}

func TestStopScores(t *testing.T) {
	db := openTestDB(t)

	for _, v := range []float64{2, 4, 6} {
		if err := db.InsertStopScore("E1", v); err != nil {
			t.Fatal(err)
		}
	}

	if got := db.StopScores("E1"); !reflect.DeepEqual(got, []float64{2, 4, 6}) {
		t.Errorf("got %v, want [2 4 6]", got)
	}
	if got := db.StopScores("E2"); len(got) != 0 {
		t.Errorf("unknown element: got %v, want empty", got)
	}
}
