package steps

import (
	"fmt"

	"github.com/citeguard/citeguard/internal/flags"
	"github.com/citeguard/citeguard/internal/model"
)

// maxCleanFlags is the accumulated-flag ceiling: a citation carrying more
// than this many non-informational flags is FLAGGED even when no single
// step demands it.
const maxCleanFlags = 2

// weakAuthorityFloor is the strength score below which a WEAK_AUTHORITY
// note is attached.
const weakAuthorityFloor = 40.0

// Step weights for the composite confidence. Existence, holding, and
// bad-law dominate; the advisory steps weigh half as much.
const (
	weightHeavy = 2.0
	weightLight = 1.0
)

// Compilation is the Step 7 output: a derived status, a composite
// confidence, and the flag codes and recommendations to publish.
type Compilation struct {
	Status          model.VerdictStatus
	Confidence      float64
	FlagCodes       []model.FlagCode
	Recommendations []string
}

// Compile derives the composite verdict from the six step records. The
// status precedence is fixed: existence failure and overruling block,
// holding rejection rejects, advisory findings flag, and only a clean run
// verifies. Compile is pure and idempotent.
func Compile(results model.StepResults, highStakes bool) Compilation {
	codes := collectFlagCodes(results, highStakes)

	c := Compilation{
		Confidence:      compositeConfidence(results),
		FlagCodes:       codes,
		Recommendations: recommendations(results, codes),
	}

	switch {
	case results.Existence.Status == model.ExistenceNotFound,
		results.Existence.Status == model.ExistenceError:
		c.Status = model.VerdictBlocked
	case results.BadLaw.Status == model.BadLawOverruled:
		c.Status = model.VerdictBlocked
	case results.Holding.Status == model.HoldingRejected:
		c.Status = model.VerdictRejected
	case results.Dicta.Action == model.DictaFlag,
		results.Quote.Status == model.QuoteNotFound,
		results.BadLaw.Status == model.BadLawNegativeTreatment,
		countSerious(codes) > maxCleanFlags:
		c.Status = model.VerdictFlagged
	default:
		c.Status = model.VerdictVerified
	}
	return c
}

// compositeConfidence is the weighted average of the evaluated steps.
// Skipped steps leave the denominator; so does the quote step when the
// proposition carried no quote.
func compositeConfidence(r model.StepResults) float64 {
	var sum, weight float64

	if r.Existence.Status != model.ExistenceSkipped {
		sum += r.Existence.Confidence * weightHeavy
		weight += weightHeavy
	}
	if r.Holding.Status != model.HoldingSkipped {
		sum += r.Holding.Confidence * weightHeavy
		weight += weightHeavy
	}
	if r.BadLaw.Status != model.BadLawSkipped {
		sum += r.BadLaw.Confidence * weightHeavy
		weight += weightHeavy
	}
	if r.Dicta.Classification != model.PassageSkipped {
		sum += r.Dicta.Confidence * weightLight
		weight += weightLight
	}
	if r.Quote.Status != model.QuoteSkipped && r.Quote.Status != model.QuoteNotApplicable {
		sum += r.Quote.Similarity * weightLight
		weight += weightLight
	}
	if r.Authority.Class != model.AuthoritySkipped {
		sum += (r.Authority.Score / 100) * weightLight
		weight += weightLight
	}

	if weight == 0 {
		return 0
	}
	return sum / weight
}

func collectFlagCodes(r model.StepResults, highStakes bool) []model.FlagCode {
	var codes []model.FlagCode
	add := func(c model.FlagCode) { codes = append(codes, c) }

	switch r.Existence.Status {
	case model.ExistenceNotFound:
		add(flags.CodeCitationNotFound)
	case model.ExistenceError:
		add(flags.CodeVerificationIncomplete)
	case model.ExistenceUnpublished:
		add(flags.CodeUnpublishedOpinion)
	}

	switch r.Holding.Status {
	case model.HoldingRejected:
		add(flags.CodeHoldingRejected)
	case model.HoldingUncertain:
		add(flags.CodeHoldingUncertain)
	}

	switch r.Dicta.Action {
	case model.DictaFlag:
		add(flags.CodeDictaCritical)
	case model.DictaNote:
		if r.Dicta.Classification != model.PassageSkipped {
			add(flags.CodeDictaNote)
		}
	}

	switch r.Quote.Status {
	case model.QuoteNotFound:
		add(flags.CodeQuoteNotFound)
	case model.QuotePartialMatch:
		add(flags.CodeQuotePartialMatch)
	case model.QuoteCloseMatch:
		if r.Quote.Action == model.QuoteAutoCorrect {
			add(flags.CodeQuoteAutoCorrected)
		}
	}

	switch r.BadLaw.Status {
	case model.BadLawOverruled:
		add(flags.CodeCaseOverruled)
	case model.BadLawNegativeTreatment:
		add(flags.CodeNegativeTreatment)
	case model.BadLawCaution:
		add(flags.CodeBadLawCaution)
	}

	if r.Authority.Class == model.AuthorityControversial {
		add(flags.CodeControversialAuthority)
	} else if r.Authority.Class != model.AuthoritySkipped && r.Authority.Score < weakAuthorityFloor {
		add(flags.CodeWeakAuthority)
	}

	if highStakes {
		add(flags.CodeHighStakesCitation)
	}
	return codes
}

// countSerious counts flags that demand attention; informational notes do
// not push a citation over the accumulated-flag ceiling.
func countSerious(codes []model.FlagCode) int {
	n := 0
	for _, code := range codes {
		category, _, _, ok := flags.Lookup(code)
		if ok && category != model.FlagInfo {
			n++
		}
	}
	return n
}

func recommendations(r model.StepResults, codes []model.FlagCode) []string {
	var recs []string
	for _, code := range codes {
		switch code {
		case flags.CodeCitationNotFound:
			recs = append(recs, "Remove the citation or replace it with a verifiable authority.")
		case flags.CodeVerificationIncomplete:
			recs = append(recs, "Verify the citation manually; the legal database could not be reached.")
		case flags.CodeHoldingRejected:
			recs = append(recs, "The holding does not support this proposition; find substitute authority.")
		case flags.CodeHoldingUncertain:
			recs = append(recs, "Review whether the holding actually supports the proposition as stated.")
		case flags.CodeDictaCritical:
			recs = append(recs, "An outcome-determinative element rests on dicta; cite a case holding the point.")
		case flags.CodeQuoteNotFound:
			recs = append(recs, "The quoted language does not appear in the opinion; remove or re-source the quote.")
		case flags.CodeQuotePartialMatch:
			recs = append(recs, fmt.Sprintf("The quote only partially matches the opinion (similarity %.0f%%); check it against the original.", r.Quote.Similarity*100))
		case flags.CodeQuoteAutoCorrected:
			recs = append(recs, "The quote was corrected to the opinion's exact text; confirm the correction.")
		case flags.CodeCaseOverruled:
			if r.BadLaw.OverruledBy != "" {
				recs = append(recs, "The case was overruled by "+r.BadLaw.OverruledBy+"; it must not be cited as good law.")
			} else {
				recs = append(recs, "The case has been overruled; it must not be cited as good law.")
			}
		case flags.CodeNegativeTreatment:
			recs = append(recs, "The case has significant negative treatment; consider stronger authority.")
		case flags.CodeControversialAuthority:
			recs = append(recs, "The case is frequently distinguished; anticipate the distinction in argument.")
		case flags.CodeWeakAuthority:
			recs = append(recs, "The authority is weak; pair it with a stronger supporting citation if available.")
		case flags.CodeUnpublishedOpinion:
			recs = append(recs, "The opinion is unpublished; confirm local rules permit citing it.")
		}
	}
	return recs
}
