// Package protocol runs the compliance rule set against compiled
// verification verdicts. Rules are independent detectors layered on top of
// pipeline output: none of them re-queries an external service, and none
// of them short-circuits another.
package protocol

import (
	"fmt"
	"strings"

	"github.com/citeguard/citeguard/internal/flags"
	"github.com/citeguard/citeguard/internal/model"
)

// Finding is what a rule handler reports when it evaluates a verdict.
type Finding struct {
	Triggered    bool
	Severity     model.FlagSeverity
	RequiresHold bool
	// AISEntry is the audit information statement describing the finding.
	AISEntry string
	// FlagCode, when set on a triggered finding, is raised through the
	// flag manager unless the dispatcher is in detection-only mode.
	FlagCode model.FlagCode
}

// Handler evaluates one rule against a verdict. Handlers must be pure
// detectors: no external calls, no mutation of the verdict.
type Handler func(v *model.VerificationVerdict) (Finding, error)

// Rule is one registered compliance protocol. Rules run in numeric order,
// which is also the priority order: the named detection rules occupy the
// low numbers.
type Rule struct {
	Number  int
	Name    string
	Handler Handler
}

// Registry returns the full rule set in dispatch order.
func Registry() []Rule {
	return []Rule{
		{1, "dissent-citation", dissentCitation},
		{2, "en-banc-supersession", enBancSupersession},
		{3, "citation-mismatch", citationMismatch},
		{4, "quote-integrity", quoteIntegrity},
		{5, "plurality-opinion", pluralityOpinion},
		{6, "dicta-dependency", dictaDependency},
		{7, "amended-opinion", amendedOpinion},
		{8, "upstream-authority", upstreamAuthority},
		{9, "unverified-citation", unverifiedCitation},
		{10, "verification-incomplete", verificationIncomplete},
		{11, "holding-contradiction", holdingContradiction},
		{12, "holding-uncertainty", holdingUncertainty},
		{13, "overruled-authority", overruledAuthority},
		{14, "negative-treatment", negativeTreatment},
		{15, "stale-authority", staleAuthority},
		{16, "weak-authority", weakAuthority},
		{17, "unpublished-opinion", unpublishedOpinion},
		{18, "high-stakes-scrutiny", highStakesScrutiny},
		{19, "quote-alteration", quoteAlteration},
		{20, "low-confidence-verification", lowConfidenceVerification},
		{21, "flag-accumulation", flagAccumulation},
		{22, "blocked-escalation", blockedEscalation},
		{23, "cost-anomaly", costAnomaly},
	}
}

func clean() (Finding, error) { return Finding{}, nil }

func dissentCitation(v *model.VerificationVerdict) (Finding, error) {
	if v.Steps.Dicta.Classification != model.PassageDissent {
		return clean()
	}
	return Finding{
		Triggered:    true,
		Severity:     model.SeverityHigh,
		RequiresHold: true,
		AISEntry:     "cited language appears in a dissenting opinion, which has no precedential force",
		FlagCode:     flags.CodeDissentCited,
	}, nil
}

func enBancSupersession(v *model.VerificationVerdict) (Finding, error) {
	if !mentionsEnBanc(v.Steps.BadLaw.OverruledBy) && !mentionsEnBanc(v.Steps.BadLaw.Explanation) {
		return clean()
	}
	return Finding{
		Triggered:    true,
		Severity:     model.SeverityCritical,
		RequiresHold: true,
		AISEntry:     "panel decision appears superseded by en banc rehearing: " + v.Steps.BadLaw.OverruledBy,
		FlagCode:     flags.CodeEnBancSuperseded,
	}, nil
}

func citationMismatch(v *model.VerificationVerdict) (Finding, error) {
	comp := v.Citation.Components
	located := v.Steps.Existence.CaseName
	if comp == nil || comp.CaseName == "" || located == "" {
		return clean()
	}
	if caseNamesCompatible(comp.CaseName, located) {
		return clean()
	}
	return Finding{
		Triggered:    true,
		Severity:     model.SeverityHigh,
		RequiresHold: true,
		AISEntry: fmt.Sprintf("citation names %q but the reporter cite resolves to %q",
			comp.CaseName, located),
		FlagCode: flags.CodeCitationMismatch,
	}, nil
}

func quoteIntegrity(v *model.VerificationVerdict) (Finding, error) {
	if v.Steps.Quote.Status != model.QuoteNotFound || !v.Proposition.HasDirectQuote() {
		return clean()
	}
	return Finding{
		Triggered:    true,
		Severity:     model.SeverityCritical,
		RequiresHold: true,
		AISEntry:     "quoted language was not found in the opinion; possible fabricated quote",
		FlagCode:     flags.CodeQuoteNotFound,
	}, nil
}

func pluralityOpinion(v *model.VerificationVerdict) (Finding, error) {
	if !strings.Contains(strings.ToLower(v.Steps.Dicta.Explanation), "plurality") &&
		!stageMentions(v.Steps.Holding, "plurality") {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityMedium,
		AISEntry:  "cited holding appears to come from a plurality opinion; its precedential weight is limited",
		FlagCode:  flags.CodePluralityOpinion,
	}, nil
}

func dictaDependency(v *model.VerificationVerdict) (Finding, error) {
	if v.Steps.Dicta.Action != model.DictaFlag {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityHigh,
		AISEntry:  "outcome-determinative proposition rests on non-holding language",
		FlagCode:  flags.CodeDictaCritical,
	}, nil
}

func amendedOpinion(v *model.VerificationVerdict) (Finding, error) {
	text := strings.ToLower(v.Steps.BadLaw.Explanation + " " + v.Steps.Existence.CaseName)
	if !strings.Contains(text, "amended") && !strings.Contains(text, "superseded") {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityMedium,
		AISEntry:  "opinion appears to have been amended or superseded after publication; verify the operative version",
		FlagCode:  flags.CodeAmendedOpinion,
	}, nil
}

func upstreamAuthority(v *model.VerificationVerdict) (Finding, error) {
	text := strings.ToLower(v.Steps.BadLaw.Explanation)
	if !strings.Contains(text, "abrogated") && !strings.Contains(text, "overruled in part") &&
		!strings.Contains(text, "relies on") {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityHigh,
		AISEntry:  "authority the cited case relies on appears to have been negated: " + v.Steps.BadLaw.Explanation,
		FlagCode:  flags.CodeUpstreamAuthority,
	}, nil
}

func unverifiedCitation(v *model.VerificationVerdict) (Finding, error) {
	if v.Steps.Existence.Status != model.ExistenceNotFound {
		return clean()
	}
	return Finding{
		Triggered:    true,
		Severity:     model.SeverityCritical,
		RequiresHold: true,
		AISEntry:     "citation could not be located in any legal database",
		FlagCode:     flags.CodeCitationNotFound,
	}, nil
}

func verificationIncomplete(v *model.VerificationVerdict) (Finding, error) {
	if v.Steps.Existence.Status != model.ExistenceError {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityHigh,
		AISEntry:  "verification infrastructure failed; the citation was not independently verified",
		FlagCode:  flags.CodeVerificationIncomplete,
	}, nil
}

func holdingContradiction(v *model.VerificationVerdict) (Finding, error) {
	if v.Steps.Holding.Status != model.HoldingRejected {
		return clean()
	}
	return Finding{
		Triggered:    true,
		Severity:     model.SeverityCritical,
		RequiresHold: true,
		AISEntry:     "adversarial review concluded the holding does not support the stated proposition",
		FlagCode:     flags.CodeHoldingRejected,
	}, nil
}

func holdingUncertainty(v *model.VerificationVerdict) (Finding, error) {
	if v.Steps.Holding.Status != model.HoldingUncertain || v.Steps.Holding.Confidence >= 0.5 {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityMedium,
		AISEntry:  fmt.Sprintf("holding support is uncertain at %.2f confidence", v.Steps.Holding.Confidence),
		FlagCode:  flags.CodeHoldingUncertain,
	}, nil
}

func overruledAuthority(v *model.VerificationVerdict) (Finding, error) {
	if v.Steps.BadLaw.Status != model.BadLawOverruled {
		return clean()
	}
	entry := "cited case has been overruled"
	if v.Steps.BadLaw.OverruledBy != "" {
		entry += " by " + v.Steps.BadLaw.OverruledBy
	}
	return Finding{
		Triggered:    true,
		Severity:     model.SeverityCritical,
		RequiresHold: true,
		AISEntry:     entry,
		FlagCode:     flags.CodeCaseOverruled,
	}, nil
}

func negativeTreatment(v *model.VerificationVerdict) (Finding, error) {
	if v.Steps.BadLaw.Status != model.BadLawNegativeTreatment {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityHigh,
		AISEntry: fmt.Sprintf("cited case carries significant negative treatment (%d of %d citing cases)",
			v.Steps.BadLaw.Treatment.Negative, v.Steps.BadLaw.Treatment.Total),
		FlagCode: flags.CodeNegativeTreatment,
	}, nil
}

func staleAuthority(v *model.VerificationVerdict) (Finding, error) {
	m := v.Steps.Authority.Metrics
	if v.Steps.Authority.Class != model.AuthorityDeclining || m.AgeYears <= 25 {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityLow,
		AISEntry:  fmt.Sprintf("authority is %d years old with a declining citation trend", m.AgeYears),
		FlagCode:  flags.CodeWeakAuthority,
	}, nil
}

func weakAuthority(v *model.VerificationVerdict) (Finding, error) {
	if v.Steps.Authority.Class == model.AuthoritySkipped || v.Steps.Authority.Score >= 25 {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityLow,
		AISEntry:  fmt.Sprintf("authority strength score %.0f is near the bottom of the scale", v.Steps.Authority.Score),
		FlagCode:  flags.CodeWeakAuthority,
	}, nil
}

func unpublishedOpinion(v *model.VerificationVerdict) (Finding, error) {
	if v.Steps.Existence.Status != model.ExistenceUnpublished {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityLow,
		AISEntry:  "cited opinion is unpublished; local rules may restrict citing it",
		FlagCode:  flags.CodeUnpublishedOpinion,
	}, nil
}

func highStakesScrutiny(v *model.VerificationVerdict) (Finding, error) {
	if !v.Steps.Holding.HighStakes || v.Confidence >= 0.9 {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityMedium,
		AISEntry: fmt.Sprintf("sole outcome-determinative authority verified at only %.2f composite confidence",
			v.Confidence),
		FlagCode: flags.CodeHighStakesCitation,
	}, nil
}

func quoteAlteration(v *model.VerificationVerdict) (Finding, error) {
	if v.Steps.Quote.Action != model.QuoteAutoCorrect {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityLow,
		AISEntry:  "quoted language was auto-corrected to the opinion text; the draft should adopt the correction",
		FlagCode:  flags.CodeQuoteAutoCorrected,
	}, nil
}

func lowConfidenceVerification(v *model.VerificationVerdict) (Finding, error) {
	if v.Status != model.VerdictVerified || v.Confidence >= 0.70 {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityMedium,
		AISEntry:  fmt.Sprintf("verdict is VERIFIED but composite confidence %.2f is below the review threshold", v.Confidence),
		FlagCode:  flags.CodeVerificationIncomplete,
	}, nil
}

func flagAccumulation(v *model.VerificationVerdict) (Finding, error) {
	if len(v.FlagCodes) <= 4 {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityMedium,
		AISEntry:  fmt.Sprintf("citation accumulated %d flags across the pipeline", len(v.FlagCodes)),
	}, nil
}

func blockedEscalation(v *model.VerificationVerdict) (Finding, error) {
	if v.Status != model.VerdictBlocked {
		return clean()
	}
	return Finding{
		Triggered:    true,
		Severity:     model.SeverityCritical,
		RequiresHold: true,
		AISEntry:     "verdict is BLOCKED; the citation must not appear in the filed draft",
		FlagCode:     flags.CodeProtocolHold,
	}, nil
}

func costAnomaly(v *model.VerificationVerdict) (Finding, error) {
	if v.Usage.ModelCalls <= 6 && v.Usage.CostUSD <= 0.50 {
		return clean()
	}
	return Finding{
		Triggered: true,
		Severity:  model.SeverityInfo,
		AISEntry: fmt.Sprintf("verification cost is anomalous: %d model calls, $%.4f",
			v.Usage.ModelCalls, v.Usage.CostUSD),
	}, nil
}

func mentionsEnBanc(s string) bool {
	return strings.Contains(strings.ToLower(s), "en banc")
}

func stageMentions(h model.HoldingResult, term string) bool {
	if h.Stage1 != nil && strings.Contains(strings.ToLower(h.Stage1.Reasoning), term) {
		return true
	}
	if h.Stage2 != nil && strings.Contains(strings.ToLower(h.Stage2.Reasoning), term) {
		return true
	}
	return false
}

// caseNamesCompatible compares drafted and located case names loosely: the
// located name must contain each party word of the drafted name. Reporter
// databases expand abbreviations, so exact equality is too strict.
func caseNamesCompatible(drafted, located string) bool {
	d := strings.ToLower(drafted)
	l := strings.ToLower(located)
	if strings.Contains(l, d) || strings.Contains(d, l) {
		return true
	}
	matched := 0
	words := 0
	for _, w := range strings.Fields(d) {
		w = strings.Trim(w, ".,")
		if len(w) < 4 || w == "united" || w == "states" {
			continue
		}
		words++
		if strings.Contains(l, w) {
			matched++
		}
	}
	if words == 0 {
		return true
	}
	return matched*2 >= words
}
