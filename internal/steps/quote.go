package steps

import (
	"regexp"
	"strings"
	"time"

	"github.com/citeguard/citeguard/internal/model"
)

// Quote similarity thresholds. Similarity is 1 - editDistance/maxLen over
// the best matching window.
const (
	quoteExactThreshold   = 0.95
	quoteCloseThreshold   = 0.90
	quotePartialThreshold = 0.80
)

var (
	bracketedRe  = regexp.MustCompile(`\[[^\]]{0,40}\]`)
	quoteSpaceRe = regexp.MustCompile(`\s+`)
)

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, // smart double quotes
	"‘", "'", "’", "'", // smart single quotes
	"–", "-", "—", "-", // en/em dashes
	"…", "...", // ellipsis
)

// normalizeQuoteText unifies typography between drafted quotes and opinion
// text: smart quotes, dashes, and ellipses are flattened, bracketed
// editorial marks ("[sic]", "[emphasis added]", alterations) are stripped,
// and whitespace is collapsed.
func normalizeQuoteText(s string) string {
	s = quoteReplacer.Replace(s)
	s = bracketedRe.ReplaceAllString(s, " ")
	s = quoteSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(strings.ToLower(s))
}

// ClassifyQuoteSimilarity maps a similarity score onto the quote
// verification outcome and its recommended action.
func ClassifyQuoteSimilarity(similarity float64) (model.QuoteStatus, model.QuoteAction) {
	switch {
	case similarity >= quoteExactThreshold:
		return model.QuoteExactMatch, model.QuoteProceed
	case similarity >= quoteCloseThreshold:
		return model.QuoteCloseMatch, model.QuoteAutoCorrect
	case similarity >= quotePartialThreshold:
		return model.QuotePartialMatch, model.QuoteFlagAction
	default:
		return model.QuoteNotFound, model.QuoteRemove
	}
}

// QuoteStep verifies that a directly quoted passage appears in the opinion.
type QuoteStep struct{}

// NewQuoteStep creates the quote verifier.
func NewQuoteStep() *QuoteStep {
	return &QuoteStep{}
}

// Run verifies the proposition's quote against the opinion text. It only
// applies when the proposition carries a direct quote; otherwise the step
// reports NOT_APPLICABLE.
func (s *QuoteStep) Run(prop model.Proposition, opinionText string) model.QuoteResult {
	start := time.Now()

	if !prop.HasDirectQuote() {
		return model.QuoteResult{
			Status:   model.QuoteNotApplicable,
			Action:   model.QuoteNoAction,
			Duration: time.Since(start),
		}
	}
	if opinionText == "" {
		return model.QuoteResult{
			Status:   model.QuoteNotFound,
			Action:   model.QuoteRemove,
			Err:      "no opinion text available for quote verification",
			Duration: time.Since(start),
		}
	}

	quote := normalizeQuoteText(prop.Quote)
	opinion := normalizeQuoteText(opinionText)

	// Exact substring first; the fuzzy scan is the fallback.
	if strings.Contains(opinion, quote) {
		return model.QuoteResult{
			Status:      model.QuoteExactMatch,
			Action:      model.QuoteProceed,
			Similarity:  1.0,
			MatchedText: quote,
			Duration:    time.Since(start),
		}
	}

	similarity, matched := bestWindowMatch(quote, opinion)
	status, action := ClassifyQuoteSimilarity(similarity)

	result := model.QuoteResult{
		Status:      status,
		Action:      action,
		Similarity:  similarity,
		MatchedText: matched,
		Duration:    time.Since(start),
	}
	if action == model.QuoteAutoCorrect {
		result.Corrected = matched
	}
	return result
}

// bestWindowMatch slides a word-aligned window the width of the quote
// across the opinion, scoring each window by normalized edit distance.
// The scan short-circuits as soon as a window clears the exact-match
// threshold rather than exhaustively searching the opinion.
func bestWindowMatch(quote, opinion string) (float64, string) {
	quoteWords := strings.Fields(quote)
	opinionWords := strings.Fields(opinion)
	if len(quoteWords) == 0 || len(opinionWords) == 0 {
		return 0, ""
	}

	width := len(quoteWords)
	if width > len(opinionWords) {
		window := strings.Join(opinionWords, " ")
		return similarity(quote, window), window
	}

	best := 0.0
	bestWindow := ""
	for i := 0; i+width <= len(opinionWords); i++ {
		window := strings.Join(opinionWords[i:i+width], " ")
		score := similarity(quote, window)
		if score > best {
			best = score
			bestWindow = window
			if best >= quoteExactThreshold {
				return best, bestWindow
			}
		}
	}
	return best, bestWindow
}

// similarity is 1 - levenshtein(a,b)/max(len(a),len(b)), on runes.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein computes edit distance with a two-row matrix.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
