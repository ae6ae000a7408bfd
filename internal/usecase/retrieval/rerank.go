package retrieval

import (
	"math"
	"sort"
	"time"

	"github.com/knowbase-io/knowbase/internal/domain"
)

// Rerank boost weights and the recency decay period.
const (
	verifiedBoost     = 0.1
	officialBoost     = 0.1
	recencyBoostMax   = 0.2
	recencyDecayDays  = 30.0
	officialSourceTag = "official"
)

// rerank adjusts each document's similarity with metadata boosts and
// re-sorts descending. Ties keep their incoming order.
//
// adjusted = similarity
//   - +0.1 when metadata marks the document verified
//   - +0.1 when the source is "official"
//   - +recency: 0.2 * exp(-ageDays/30), never negative
func rerank(docs []domain.Document, now time.Time) []domain.Document {
	for i := range docs {
		docs[i].Similarity += boost(docs[i].Metadata, now)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Similarity > docs[j].Similarity
	})
	return docs
}

func boost(meta domain.Metadata, now time.Time) float64 {
	var b float64
	if meta.Verified {
		b += verifiedBoost
	}
	if meta.Source == officialSourceTag {
		b += officialBoost
	}
	b += recencyBoost(meta.Timestamp, now)
	return b
}

// recencyBoost decays exponentially with document age. Documents without a
// timestamp, or dated in the future beyond now, never get a negative boost.
func recencyBoost(ts time.Time, now time.Time) float64 {
	if ts.IsZero() {
		return 0
	}
	ageDays := now.Sub(ts).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Max(0, recencyBoostMax*math.Exp(-ageDays/recencyDecayDays))
}
