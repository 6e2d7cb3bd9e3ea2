package index

import (
	"strings"
	"testing"
)

func populated(t *testing.T) *Index {
	t.Helper()
	ix := New()
	mustAdd(t, ix, "d1", "go concurrency patterns channels goroutines")
	mustAdd(t, ix, "d2", "go web services http handlers")
	mustAdd(t, ix, "d3", "database indexing strategies")
	return ix
}

func TestSnapshotRoundTrip(t *testing.T) {
	ix := populated(t)
	snap := ix.Snapshot()

	restored, err := FromSnapshot(snap)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}

	if restored.TotalDocuments() != ix.TotalDocuments() {
		t.Fatalf("documents = %d, want %d", restored.TotalDocuments(), ix.TotalDocuments())
	}
	if restored.TotalTerms() != ix.TotalTerms() {
		t.Fatalf("terms = %d, want %d", restored.TotalTerms(), ix.TotalTerms())
	}

	goPostings := restored.Postings("go")
	if len(goPostings) != 2 {
		t.Fatalf("postings for go: %v", goPostings)
	}

	doc, ok := restored.GetDocument("d3")
	if !ok {
		t.Fatal("d3 missing after restore")
	}
	if !strings.Contains(doc.Content, "indexing") {
		t.Fatalf("d3 content = %q", doc.Content)
	}

	// Restored index preserves sample-term insertion order.
	orig := ix.SampleTerms(-1)
	got := restored.SampleTerms(-1)
	if len(orig) != len(got) {
		t.Fatalf("sample sizes differ: %d vs %d", len(orig), len(got))
	}
	for i := range orig {
		if orig[i].Term != got[i].Term {
			t.Fatalf("sample order diverges at %d: %s vs %s", i, orig[i].Term, got[i].Term)
		}
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	ix := populated(t)
	snap := ix.Snapshot()
	before := snap.TotalDocuments

	mustAdd(t, ix, "d4", "mutation after snapshot")
	if err := ix.RemoveDocument("d1"); err != nil {
		t.Fatal(err)
	}

	if snap.TotalDocuments != before {
		t.Fatal("snapshot tracked later index mutations")
	}
	if _, ok := snap.Documents["d4"]; ok {
		t.Fatal("snapshot contains document added after it was taken")
	}
}

func TestValidateRejectsCounterMismatch(t *testing.T) {
	snap := populated(t).Snapshot()
	snap.TotalDocuments++
	if err := snap.Validate(); err == nil {
		t.Fatal("expected validation failure for document counter mismatch")
	}
}

func TestValidateRejectsTermStatMismatch(t *testing.T) {
	snap := populated(t).Snapshot()
	snap.TermStats["go"] = 99
	if err := snap.Validate(); err == nil {
		t.Fatal("expected validation failure for document frequency mismatch")
	}
}

func TestValidateRejectsEmptyPostingList(t *testing.T) {
	snap := populated(t).Snapshot()
	snap.Index["phantom"] = map[string]int{}
	snap.TotalTerms++
	if err := snap.Validate(); err == nil {
		t.Fatal("expected validation failure for empty posting list")
	}
}

func TestValidateRejectsGhostTermOrderEntry(t *testing.T) {
	snap := populated(t).Snapshot()
	snap.TermOrder[0] = "ghost"
	if err := snap.Validate(); err == nil {
		t.Fatal("expected validation failure for unindexed term_order entry")
	}
	if _, err := FromSnapshot(snap); err == nil {
		t.Fatal("expected restore to reject unindexed term_order entry")
	}
}

func TestValidateRejectsDuplicateTermOrderEntry(t *testing.T) {
	snap := populated(t).Snapshot()
	snap.TermOrder[0] = snap.TermOrder[1]
	if err := snap.Validate(); err == nil {
		t.Fatal("expected validation failure for duplicated term_order entry")
	}
}

func TestValidateRejectsShortTermOrder(t *testing.T) {
	snap := populated(t).Snapshot()
	snap.TermOrder = snap.TermOrder[:1]
	if err := snap.Validate(); err == nil {
		t.Fatal("expected validation failure for truncated term_order")
	}
}

func TestFromSnapshotWithoutTermOrder(t *testing.T) {
	snap := populated(t).Snapshot()
	snap.TermOrder = nil

	restored, err := FromSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}
	sample := restored.SampleTerms(-1)
	for i := 1; i < len(sample); i++ {
		if sample[i-1].Term > sample[i].Term {
			t.Fatalf("fallback order not lexicographic: %s before %s", sample[i-1].Term, sample[i].Term)
		}
	}
}

func TestFromSnapshotEmpty(t *testing.T) {
	restored, err := FromSnapshot(New().Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	if restored.TotalDocuments() != 0 || restored.TotalTerms() != 0 {
		t.Fatal("empty snapshot restored to non-empty index")
	}
}
