package index

import (
	"errors"
	"testing"

	dserrors "github.com/docsearch-io/docsearch/pkg/errors"
)

func mustAdd(t *testing.T, ix *Index, id, content string) {
	t.Helper()
	if err := ix.AddDocument(id, content, "", ""); err != nil {
		t.Fatalf("AddDocument(%q): %v", id, err)
	}
}

func TestAddDocumentIndexesTerms(t *testing.T) {
	ix := New()
	mustAdd(t, ix, "d1", "go is expressive and go is fast")

	if got := ix.TotalDocuments(); got != 1 {
		t.Fatalf("TotalDocuments = %d, want 1", got)
	}

	postings := ix.Postings("go")
	if len(postings) != 1 {
		t.Fatalf("postings for %q: %v", "go", postings)
	}
	if postings[0].DocID != "d1" || postings[0].Count != 2 {
		t.Fatalf("got posting %+v, want {d1 2}", postings[0])
	}

	// "and" and "is"... "and" is a stop word, "is" is not.
	if ix.Postings("and") != nil {
		t.Fatal("stop word was indexed")
	}
	if ix.Postings("is") == nil {
		t.Fatal("non-stop word missing from index")
	}
}

func TestAddDocumentRecordsMetadata(t *testing.T) {
	ix := New()
	if err := ix.AddDocument("d1", "alpha beta alpha", "My Title", "Someone"); err != nil {
		t.Fatal(err)
	}

	doc, ok := ix.GetDocument("d1")
	if !ok {
		t.Fatal("document not stored")
	}
	if doc.Title != "My Title" || doc.Author != "Someone" {
		t.Fatalf("metadata: %+v", doc)
	}
	if doc.TotalTerms != 3 || doc.UniqueTerms != 2 {
		t.Fatalf("TotalTerms=%d UniqueTerms=%d, want 3 and 2", doc.TotalTerms, doc.UniqueTerms)
	}
	if doc.AddedAt.IsZero() {
		t.Fatal("AddedAt not set")
	}
}

func TestAddDocumentDefaultTitle(t *testing.T) {
	ix := New()
	mustAdd(t, ix, "report-7", "quarterly numbers")
	doc, _ := ix.GetDocument("report-7")
	if doc.Title != "Document report-7" {
		t.Fatalf("default title = %q", doc.Title)
	}
}

func TestAddDocumentRejectsEmptyContent(t *testing.T) {
	ix := New()
	for _, content := range []string{"", "   ", "the and of", "!!! ???"} {
		err := ix.AddDocument("d1", content, "", "")
		if !errors.Is(err, dserrors.ErrInvalidInput) {
			t.Errorf("content %q: err = %v, want ErrInvalidInput", content, err)
		}
	}
	if ix.TotalDocuments() != 0 || ix.TotalTerms() != 0 {
		t.Fatal("rejected document left state behind")
	}
}

func TestDocumentFrequencyCountsDocumentsNotOccurrences(t *testing.T) {
	ix := New()
	mustAdd(t, ix, "d1", "cache cache cache")
	mustAdd(t, ix, "d2", "cache layer")

	stats := ix.Stats()
	for _, tc := range stats.MostCommonTerms {
		if tc.Term == "cache" && tc.Count != 2 {
			t.Fatalf("document frequency for cache = %d, want 2", tc.Count)
		}
	}
}

func TestRemoveDocumentReversesAdd(t *testing.T) {
	ix := New()
	mustAdd(t, ix, "keep", "shared term plus unique_keep")
	mustAdd(t, ix, "gone", "shared term plus unique_gone")

	if err := ix.RemoveDocument("gone"); err != nil {
		t.Fatal(err)
	}

	if _, ok := ix.GetDocument("gone"); ok {
		t.Fatal("document record survived removal")
	}
	if ix.Postings("unique_gone") != nil {
		t.Fatal("term with empty posting list not pruned")
	}
	if got := len(ix.Postings("shared")); got != 1 {
		t.Fatalf("shared term postings = %d, want 1", got)
	}

	stats := ix.Stats()
	for _, tc := range stats.MostCommonTerms {
		if tc.Term == "shared" && tc.Count != 1 {
			t.Fatalf("shared document frequency = %d after removal, want 1", tc.Count)
		}
		if tc.Term == "unique_gone" {
			t.Fatal("pruned term still in term stats")
		}
	}
}

func TestRemoveDocumentNotFound(t *testing.T) {
	ix := New()
	err := ix.RemoveDocument("missing")
	if !errors.Is(err, dserrors.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestRemovePrunesSampleOrder(t *testing.T) {
	ix := New()
	mustAdd(t, ix, "d1", "alpha beta")
	mustAdd(t, ix, "d2", "beta gamma")

	if err := ix.RemoveDocument("d1"); err != nil {
		t.Fatal(err)
	}

	sample := ix.SampleTerms(-1)
	for _, s := range sample {
		if s.Term == "alpha" {
			t.Fatal("alpha should have left the sample order")
		}
	}
	if len(sample) != 2 {
		t.Fatalf("sample terms = %v, want beta and gamma", sample)
	}
}

func TestSampleTermsInsertionOrder(t *testing.T) {
	ix := New()
	mustAdd(t, ix, "d1", "zebra apple zebra mango")
	mustAdd(t, ix, "d2", "apple banana")

	sample := ix.SampleTerms(2)
	if len(sample) != 2 {
		t.Fatalf("len = %d, want 2", len(sample))
	}
	if sample[0].Term != "zebra" || sample[1].Term != "apple" {
		t.Fatalf("order = [%s %s], want [zebra apple]", sample[0].Term, sample[1].Term)
	}
	if sample[0].Postings["d1"] != 2 {
		t.Fatalf("zebra postings = %v", sample[0].Postings)
	}
	if sample[1].Postings["d1"] != 1 || sample[1].Postings["d2"] != 1 {
		t.Fatalf("apple postings = %v", sample[1].Postings)
	}
}

func TestSampleTermsLimitBeyondSize(t *testing.T) {
	ix := New()
	mustAdd(t, ix, "d1", "only two_terms")
	if got := len(ix.SampleTerms(100)); got != 2 {
		t.Fatalf("len = %d, want 2", got)
	}
}

func TestStatsEmptyIndex(t *testing.T) {
	stats := New().Stats()
	if stats.TotalDocuments != 0 || stats.TotalTerms != 0 || stats.TotalDocumentOccurrences != 0 {
		t.Fatalf("non-zero stats on empty index: %+v", stats)
	}
	if stats.AverageTermsPerDocument != 0 {
		t.Fatalf("average = %f, want 0", stats.AverageTermsPerDocument)
	}
}

func TestStatsTopTermsOrdering(t *testing.T) {
	ix := New()
	mustAdd(t, ix, "d1", "alpha beta gamma")
	mustAdd(t, ix, "d2", "alpha beta")
	mustAdd(t, ix, "d3", "alpha")

	stats := ix.Stats()
	if len(stats.MostCommonTerms) != 3 {
		t.Fatalf("top terms: %v", stats.MostCommonTerms)
	}
	if stats.MostCommonTerms[0].Term != "alpha" || stats.MostCommonTerms[0].Count != 3 {
		t.Fatalf("first = %+v, want alpha/3", stats.MostCommonTerms[0])
	}
	if stats.MostCommonTerms[1].Term != "beta" {
		t.Fatalf("second = %+v, want beta", stats.MostCommonTerms[1])
	}
}

func TestStatsTopTermsTieBrokenByTerm(t *testing.T) {
	ix := New()
	mustAdd(t, ix, "d1", "zulu alpha mike")

	top := ix.Stats().MostCommonTerms
	if top[0].Term != "alpha" || top[1].Term != "mike" || top[2].Term != "zulu" {
		t.Fatalf("tied terms not sorted ascending: %v", top)
	}
}

func TestStatsTopTermsCapped(t *testing.T) {
	ix := New()
	mustAdd(t, ix, "d1", "t1 t2 t3 t4 t5 t6 t7 t8 t9 t10 t11 t12")
	if got := len(ix.Stats().MostCommonTerms); got != 10 {
		t.Fatalf("top terms length = %d, want 10", got)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	ix := New()
	mustAdd(t, ix, "d1", "some content here")

	ix.Clear()
	if ix.TotalDocuments() != 0 || ix.TotalTerms() != 0 {
		t.Fatal("clear left state")
	}
	if len(ix.SampleTerms(-1)) != 0 {
		t.Fatal("clear left sample order")
	}

	ix.Clear()
	if ix.TotalDocuments() != 0 {
		t.Fatal("second clear changed state")
	}

	// Index is usable after clearing.
	mustAdd(t, ix, "d2", "fresh content")
	if ix.TotalDocuments() != 1 {
		t.Fatal("index unusable after clear")
	}
}

func TestPostingsSortedByDocID(t *testing.T) {
	ix := New()
	mustAdd(t, ix, "charlie", "shared")
	mustAdd(t, ix, "alpha", "shared")
	mustAdd(t, ix, "bravo", "shared")

	postings := ix.Postings("shared")
	if len(postings) != 3 {
		t.Fatalf("postings: %v", postings)
	}
	for i, want := range []string{"alpha", "bravo", "charlie"} {
		if postings[i].DocID != want {
			t.Fatalf("postings[%d] = %s, want %s", i, postings[i].DocID, want)
		}
	}
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	ix := New()
	mustAdd(t, ix, "seed", "concurrent access test content")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			ix.Postings("concurrent")
			ix.Stats()
			ix.TotalDocuments()
		}
	}()
	for i := 0; i < 50; i++ {
		id := string(rune('a' + i%26))
		ix.AddDocument(id+"x", "concurrent churn content", "", "")
		ix.RemoveDocument(id + "x")
	}
	<-done
}
