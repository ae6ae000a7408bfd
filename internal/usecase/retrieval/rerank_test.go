package retrieval

import (
	"math"
	"testing"
	"time"

	"github.com/knowbase-io/knowbase/internal/domain"
)

var rerankNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestRerank_VerifiedAndOfficialBoosts(t *testing.T) {
	docs := []domain.Document{
		{ID: "plain", Similarity: 0.75},
		{ID: "verified", Similarity: 0.72, Metadata: domain.Metadata{Verified: true}},
		{ID: "official", Similarity: 0.71, Metadata: domain.Metadata{Source: "official", Verified: true}},
	}

	got := rerank(docs, rerankNow)

	// 0.71 + 0.1 + 0.1 = 0.91, 0.72 + 0.1 = 0.82, plain stays 0.75.
	if got[0].ID != "official" || got[1].ID != "verified" || got[2].ID != "plain" {
		t.Fatalf("wrong order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
	if math.Abs(got[0].Similarity-0.91) > 1e-9 {
		t.Errorf("official score = %f, want 0.91", got[0].Similarity)
	}
}

func TestRerank_RecencyDecay(t *testing.T) {
	fresh := recencyBoost(rerankNow, rerankNow)
	if math.Abs(fresh-recencyBoostMax) > 1e-9 {
		t.Errorf("fresh document boost = %f, want %f", fresh, recencyBoostMax)
	}

	monthOld := recencyBoost(rerankNow.AddDate(0, 0, -30), rerankNow)
	want := recencyBoostMax * math.Exp(-1)
	if math.Abs(monthOld-want) > 1e-9 {
		t.Errorf("30-day-old boost = %f, want %f", monthOld, want)
	}

	ancient := recencyBoost(rerankNow.AddDate(-10, 0, 0), rerankNow)
	if ancient < 0 {
		t.Errorf("boost must never be negative, got %f", ancient)
	}
	if ancient > monthOld {
		t.Error("older documents must not outrank newer ones on recency")
	}
}

func TestRerank_NoTimestampNoBoost(t *testing.T) {
	if b := recencyBoost(time.Time{}, rerankNow); b != 0 {
		t.Errorf("missing timestamp should give no boost, got %f", b)
	}
}

func TestRerank_FutureTimestampClamped(t *testing.T) {
	b := recencyBoost(rerankNow.AddDate(0, 0, 7), rerankNow)
	if math.Abs(b-recencyBoostMax) > 1e-9 {
		t.Errorf("future timestamp should cap at max boost, got %f", b)
	}
}

func TestRerank_StableTies(t *testing.T) {
	docs := []domain.Document{
		{ID: "first", Similarity: 0.8},
		{ID: "second", Similarity: 0.8},
	}

	got := rerank(docs, rerankNow)
	if got[0].ID != "first" || got[1].ID != "second" {
		t.Errorf("tie-break not stable: %s, %s", got[0].ID, got[1].ID)
	}
}
