package steps

import (
	"strings"
	"testing"

	"github.com/citeguard/citeguard/internal/model"
)

func TestClassifyQuoteSimilarity(t *testing.T) {
	tests := []struct {
		similarity float64
		status     model.QuoteStatus
		action     model.QuoteAction
	}{
		{0.96, model.QuoteExactMatch, model.QuoteProceed},
		{0.95, model.QuoteExactMatch, model.QuoteProceed},
		{0.92, model.QuoteCloseMatch, model.QuoteAutoCorrect},
		{0.90, model.QuoteCloseMatch, model.QuoteAutoCorrect},
		{0.85, model.QuotePartialMatch, model.QuoteFlagAction},
		{0.80, model.QuotePartialMatch, model.QuoteFlagAction},
		{0.60, model.QuoteNotFound, model.QuoteRemove},
		{0.0, model.QuoteNotFound, model.QuoteRemove},
	}
	for _, tt := range tests {
		status, action := ClassifyQuoteSimilarity(tt.similarity)
		if status != tt.status || action != tt.action {
			t.Errorf("similarity %.2f: got %s/%s, want %s/%s",
				tt.similarity, status, action, tt.status, tt.action)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"abc", "abc", 1.0},
		{"abc", "abd", 1.0 - 1.0/3.0},
		{"kitten", "sitting", 1.0 - 3.0/7.0},
		{"", "", 1.0},
	}
	for _, tt := range tests {
		if got := similarity(tt.a, tt.b); !closeTo(got, tt.want) {
			t.Errorf("similarity(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNormalizeQuoteText(t *testing.T) {
	in := "The  “standard” for review [emphasis added] is—simply put—de novo…"
	want := `the "standard" for review is-simply put-de novo...`
	if got := normalizeQuoteText(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestQuoteRunNoQuoteIsNotApplicable(t *testing.T) {
	res := NewQuoteStep().Run(model.Proposition{Text: "paraphrased only"}, "some opinion text")
	if res.Status != model.QuoteNotApplicable {
		t.Fatalf("status = %s, want NOT_APPLICABLE", res.Status)
	}
	if res.Action != model.QuoteNoAction {
		t.Fatalf("action = %s, want NONE", res.Action)
	}
}

func TestQuoteRunNoOpinionText(t *testing.T) {
	res := NewQuoteStep().Run(model.Proposition{Quote: "some quoted text"}, "")
	if res.Status != model.QuoteNotFound {
		t.Fatalf("status = %s, want NOT_FOUND", res.Status)
	}
	if res.Err == "" {
		t.Fatal("expected an error explanation when no opinion text is available")
	}
}

func TestQuoteRunExactAcrossTypography(t *testing.T) {
	// Drafted with straight quotes; opinion uses smart quotes.
	prop := model.Proposition{Quote: `the court's "two-step" inquiry governs`}
	opinion := `We reiterate that the court’s “two-step” inquiry governs in this circuit.`

	res := NewQuoteStep().Run(prop, opinion)
	if res.Status != model.QuoteExactMatch {
		t.Fatalf("status = %s (similarity %.3f), want EXACT_MATCH", res.Status, res.Similarity)
	}
	if res.Similarity != 1.0 {
		t.Fatalf("similarity = %f, want 1.0", res.Similarity)
	}
}

func TestQuoteRunCloseMatchAutoCorrects(t *testing.T) {
	quote := "the party opposing summary judgment must set forth specific facts showing a genuine issue for trial"
	opinion := "As we explained, the party opposing summary judgment shall set forth specific facts showing a genuine dispute for trial, and nothing less suffices."

	res := NewQuoteStep().Run(model.Proposition{Quote: quote}, opinion)
	if res.Status != model.QuoteCloseMatch {
		t.Fatalf("status = %s (similarity %.3f), want CLOSE_MATCH", res.Status, res.Similarity)
	}
	if res.Action != model.QuoteAutoCorrect {
		t.Fatalf("action = %s, want AUTO_CORRECT", res.Action)
	}
	if res.Corrected == "" {
		t.Fatal("AUTO_CORRECT must carry the corrected text")
	}
	if !strings.Contains(res.Corrected, "genuine dispute") {
		t.Errorf("corrected text %q should come from the opinion", res.Corrected)
	}
}

func TestQuoteRunFabricatedQuoteNotFound(t *testing.T) {
	quote := "a completely invented passage that appears nowhere in the cited opinion whatsoever"
	opinion := "The judgment of the district court is affirmed. Costs are awarded to the appellee."

	res := NewQuoteStep().Run(model.Proposition{Quote: quote}, opinion)
	if res.Status != model.QuoteNotFound {
		t.Fatalf("status = %s (similarity %.3f), want NOT_FOUND", res.Status, res.Similarity)
	}
	if res.Action != model.QuoteRemove {
		t.Fatalf("action = %s, want REMOVE", res.Action)
	}
}

// The reported similarity and the classified status must always agree.
func TestQuoteRunStatusMatchesSimilarity(t *testing.T) {
	quote := "the movant bears the initial burden of production on each element"
	opinion := "Under Rule 56 the movant bears an initial burden of production on every element of the claim."

	res := NewQuoteStep().Run(model.Proposition{Quote: quote}, opinion)
	wantStatus, wantAction := ClassifyQuoteSimilarity(res.Similarity)
	if res.Status != wantStatus || res.Action != wantAction {
		t.Errorf("status/action %s/%s disagree with similarity %.3f (want %s/%s)",
			res.Status, res.Action, res.Similarity, wantStatus, wantAction)
	}
}

func closeTo(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
