// Package searcher ranks documents against a query using term-frequency
// scoring over the in-memory index.
package searcher

import (
	"context"
	"log/slog"
	"sort"

	"github.com/docsearch-io/docsearch/internal/index"
	"github.com/docsearch-io/docsearch/internal/index/tokenizer"
	"github.com/docsearch-io/docsearch/pkg/tracing"
)

// ScoredDoc is one ranked search hit.
type ScoredDoc struct {
	DocID string          `json:"doc_id"`
	Score float64         `json:"score"`
	Doc   *index.Document `json:"-"`
}

type Searcher struct {
	store  *index.Index
	logger *slog.Logger
}

func New(store *index.Index) *Searcher {
	return &Searcher{
		store:  store,
		logger: slog.Default().With("component", "searcher"),
	}
}

// Search tokenizes the query with the same tokenizer used at indexing time
// and scores every document holding at least one query term. A document's
// score is the sum, over matching query terms, of the term's raw count in
// the document divided by the document's total token count. Repeated query
// terms add their contribution once per occurrence; this is bag-of-words
// term-frequency semantics, not an error.
//
// Results are ordered by score descending with ties broken by document ID
// ascending, then truncated to limit. Documents matching no query term are
// excluded entirely.
func (s *Searcher) Search(ctx context.Context, query string, limit int) []ScoredDoc {
	ctx, span := tracing.StartChildSpan(ctx, "searcher.tokenize")
	terms := tokenizer.Tokenize(query)
	span.End()
	if len(terms) == 0 {
		return nil
	}

	_, scoreSpan := tracing.StartChildSpan(ctx, "searcher.score")
	scores := make(map[string]float64)
	docRecords := make(map[string]*index.Document)
	for _, term := range terms {
		for _, posting := range s.store.Postings(term) {
			doc, ok := docRecords[posting.DocID]
			if !ok {
				doc, ok = s.store.GetDocument(posting.DocID)
				if !ok {
					continue
				}
				docRecords[posting.DocID] = doc
			}
			if doc.TotalTerms > 0 {
				scores[posting.DocID] += float64(posting.Count) / float64(doc.TotalTerms)
			}
		}
	}
	scoreSpan.SetAttr("candidates", len(scores))
	scoreSpan.End()

	results := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		results = append(results, ScoredDoc{
			DocID: docID,
			Score: score,
			Doc:   docRecords[docID],
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug("query scored",
		"terms", terms,
		"candidates", len(scores),
		"returned", len(results),
	)
	return results
}
