package retrieval

// Confidence blends average similarity with a document-count factor.
const (
	similarityWeight = 0.7
	countWeight      = 0.3
	fullCountDocs    = 3.0
)

// confidence scores how much the retrieved set can be trusted:
// avg(similarity) * 0.7 + min(count/3, 1) * 0.3, clamped to [0, 1].
// An empty set scores 0.
func confidence(similarities []float64) float64 {
	if len(similarities) == 0 {
		return 0
	}

	var sum float64
	for _, s := range similarities {
		sum += s
	}
	avg := sum / float64(len(similarities))

	countFactor := float64(len(similarities)) / fullCountDocs
	if countFactor > 1 {
		countFactor = 1
	}

	c := avg*similarityWeight + countFactor*countWeight
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
