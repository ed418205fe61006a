// Package flags tracks the lifecycle of categorized issues surfaced by
// verification steps and protocols.
package flags

import "github.com/citeguard/citeguard/internal/model"

// Flag codes raised by steps and protocols. The definition table below is
// the single source of truth for category, severity, and message; adding a
// code without a definition is a programming error surfaced at Add time.
const (
	CodeCitationNotFound       model.FlagCode = "CITATION_NOT_FOUND"
	CodeVerificationIncomplete model.FlagCode = "VERIFICATION_INCOMPLETE"
	CodeHoldingRejected        model.FlagCode = "HOLDING_REJECTED"
	CodeHoldingUncertain       model.FlagCode = "HOLDING_UNCERTAIN"
	CodeDictaCritical          model.FlagCode = "DICTA_FOR_CRITICAL_PROPOSITION"
	CodeDictaNote              model.FlagCode = "DICTA_NOTE"
	CodeQuoteNotFound          model.FlagCode = "QUOTE_NOT_FOUND"
	CodeQuotePartialMatch      model.FlagCode = "QUOTE_PARTIAL_MATCH"
	CodeQuoteAutoCorrected     model.FlagCode = "QUOTE_AUTO_CORRECTED"
	CodeCaseOverruled          model.FlagCode = "CASE_OVERRULED"
	CodeNegativeTreatment      model.FlagCode = "NEGATIVE_TREATMENT"
	CodeBadLawCaution          model.FlagCode = "BAD_LAW_CAUTION"
	CodeWeakAuthority          model.FlagCode = "WEAK_AUTHORITY"
	CodeControversialAuthority model.FlagCode = "CONTROVERSIAL_AUTHORITY"
	CodeUnpublishedOpinion     model.FlagCode = "UNPUBLISHED_OPINION"
	CodeHighStakesCitation     model.FlagCode = "HIGH_STAKES_CITATION"
	CodeProtocolHold           model.FlagCode = "PROTOCOL_HOLD"
	CodeDissentCited           model.FlagCode = "DISSENT_CITED"
	CodeEnBancSuperseded       model.FlagCode = "EN_BANC_SUPERSEDED"
	CodeCitationMismatch       model.FlagCode = "CITATION_MISMATCH"
	CodePluralityOpinion       model.FlagCode = "PLURALITY_OPINION"
	CodeAmendedOpinion         model.FlagCode = "AMENDED_OPINION"
	CodeUpstreamAuthority      model.FlagCode = "UPSTREAM_AUTHORITY_NEGATED"
)

type definition struct {
	Category model.FlagCategory
	Severity model.FlagSeverity
	Message  string
}

var definitions = map[model.FlagCode]definition{
	CodeCitationNotFound:       {model.FlagBlocking, model.SeverityCritical, "Cited case could not be found in any legal database"},
	CodeVerificationIncomplete: {model.FlagAttorneyReview, model.SeverityHigh, "Citation could not be independently verified - manual check required"},
	CodeHoldingRejected:        {model.FlagBlocking, model.SeverityCritical, "Case holding does not support the stated proposition"},
	CodeHoldingUncertain:       {model.FlagAttorneyReview, model.SeverityMedium, "Holding support is uncertain after adversarial review"},
	CodeDictaCritical:          {model.FlagAttorneyReview, model.SeverityHigh, "Outcome-determinative proposition rests on non-holding language"},
	CodeDictaNote:              {model.FlagInfo, model.SeverityInfo, "Cited passage is not part of the holding"},
	CodeQuoteNotFound:          {model.FlagAttorneyReview, model.SeverityHigh, "Quoted language was not found in the opinion"},
	CodeQuotePartialMatch:      {model.FlagAttorneyReview, model.SeverityMedium, "Quoted language only partially matches the opinion"},
	CodeQuoteAutoCorrected:     {model.FlagInfo, model.SeverityLow, "Quoted language was auto-corrected to the opinion text"},
	CodeCaseOverruled:          {model.FlagBlocking, model.SeverityCritical, "Cited case has been overruled"},
	CodeNegativeTreatment:      {model.FlagAttorneyReview, model.SeverityHigh, "Cited case has significant negative treatment"},
	CodeBadLawCaution:          {model.FlagInfo, model.SeverityLow, "Cited case has subsequent history worth reviewing"},
	CodeWeakAuthority:          {model.FlagInfo, model.SeverityLow, "Cited case is weak authority for this jurisdiction"},
	CodeControversialAuthority: {model.FlagAttorneyReview, model.SeverityMedium, "Cited case is frequently distinguished or criticized"},
	CodeUnpublishedOpinion:     {model.FlagInfo, model.SeverityLow, "Cited opinion is unpublished; check local citation rules"},
	CodeHighStakesCitation:     {model.FlagInfo, model.SeverityInfo, "Citation is sole authority for an outcome-determinative element"},
	CodeProtocolHold:           {model.FlagBlocking, model.SeverityCritical, "A compliance protocol requires attorney review before filing"},
	CodeDissentCited:           {model.FlagAttorneyReview, model.SeverityHigh, "Cited language appears in a dissenting opinion"},
	CodeEnBancSuperseded:       {model.FlagBlocking, model.SeverityCritical, "Panel decision superseded by en banc rehearing"},
	CodeCitationMismatch:       {model.FlagAttorneyReview, model.SeverityHigh, "Citation components do not match the located case"},
	CodePluralityOpinion:       {model.FlagAttorneyReview, model.SeverityMedium, "Cited holding comes from a plurality opinion"},
	CodeAmendedOpinion:         {model.FlagAttorneyReview, model.SeverityMedium, "Opinion was amended or superseded after publication"},
	CodeUpstreamAuthority:      {model.FlagAttorneyReview, model.SeverityHigh, "Authority the cited case relies on has been negated"},
}

// Lookup returns the static definition for a code.
func Lookup(code model.FlagCode) (model.FlagCategory, model.FlagSeverity, string, bool) {
	d, ok := definitions[code]
	return d.Category, d.Severity, d.Message, ok
}
