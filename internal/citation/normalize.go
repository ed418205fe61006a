// Package citation normalizes raw citation strings and extracts their
// structured components (volume, reporter, page, court, year, case name).
// Normalization is idempotent: normalizing a normalized string is a no-op.
package citation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/citeguard/citeguard/internal/model"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	connectorRe  = regexp.MustCompile(`\b(vs\.|vs|v)\s`)

	// Full case citation: [Name v. Name,] 123 F.3d 456[, 460] [(9th Cir. 2020)]
	fullCaseRe = regexp.MustCompile(
		`^(?:(?P<name>.+?),\s+)?(?P<vol>\d{1,4})\s+(?P<rep>[A-Z][A-Za-z0-9.']*(?:\s(?:2d|3d|4th|Supp\.|App\.|Ct\.|L\.Ed\.|L\.Ed\.2d))*)\s+(?P<page>\d{1,5})(?:,\s*\d{1,5})?(?:\s+\((?P<court>[^)]*?)\s*(?P<year>\d{4})\))?\.?$`)

	shortCaseRe = regexp.MustCompile(`^(?P<name>.+?),\s+(?P<vol>\d{1,4})\s+(?P<rep>[A-Z][A-Za-z0-9.']*(?:\s(?:2d|3d|4th|Supp\.))*)\s+at\s+\d{1,5}\.?$`)
	idRe        = regexp.MustCompile(`(?i)^id\.(\s+at\s+\d+)?\.?$`)
	supraRe     = regexp.MustCompile(`(?i)\bsupra\b`)
	statuteRe   = regexp.MustCompile(`§|\bU\.S\.C\.|\bC\.F\.R\.`)
)

// reporterForms maps non-canonical reporter spellings to canonical ones.
// Canonical forms are absent so a second pass changes nothing.
var reporterForms = []struct {
	re   *regexp.Regexp
	out  string
}{
	{regexp.MustCompile(`\bF\. (2d|3d|4th)\b`), "F.$1"},
	{regexp.MustCompile(`\bF\. Supp\.`), "F.Supp."},
	{regexp.MustCompile(`\bF\.Supp\. (2d|3d)\b`), "F.Supp.$1"},
	{regexp.MustCompile(`\bU\. S\.`), "U.S."},
	{regexp.MustCompile(`\bS\. Ct\.`), "S.Ct."},
	{regexp.MustCompile(`\bL\. Ed\.`), "L.Ed."},
	{regexp.MustCompile(`\bL\.Ed\. 2d\b`), "L.Ed.2d"},
	{regexp.MustCompile(`\bCal\. App\.`), "Cal.App."},
	{regexp.MustCompile(`\bN\. E\.`), "N.E."},
	{regexp.MustCompile(`\bN\. W\.`), "N.W."},
	{regexp.MustCompile(`\bS\. E\.`), "S.E."},
	{regexp.MustCompile(`\bS\. W\.`), "S.W."},
}

// federalReporters gate the Step 1 docket-record fallback.
var federalReporters = map[string]bool{
	"U.S.":      true,
	"S.Ct.":     true,
	"L.Ed.":     true,
	"L.Ed.2d":   true,
	"F.":        true,
	"F.2d":      true,
	"F.3d":      true,
	"F.4th":     true,
	"F.Supp.":   true,
	"F.Supp.2d": true,
	"F.Supp.3d": true,
	"Fed.Appx.": true,
}

// Normalize canonicalizes a raw citation string: whitespace is collapsed,
// the party connector becomes "v.", and reporter abbreviations take their
// canonical form.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = connectorRe.ReplaceAllString(s, "v. ")
	for _, f := range reporterForms {
		s = f.re.ReplaceAllString(s, f.out)
	}
	return s
}

// Parse normalizes a raw citation and extracts its type and components.
func Parse(raw string) model.Citation {
	normalized := Normalize(raw)
	c := model.Citation{
		Raw:        raw,
		Normalized: normalized,
		Type:       classify(normalized),
	}
	if c.Type == model.CitationFullCase {
		c.Components = extractComponents(normalized)
	}
	return c
}

func classify(normalized string) model.CitationType {
	switch {
	case idRe.MatchString(normalized):
		return model.CitationID
	case supraRe.MatchString(normalized):
		return model.CitationSupra
	case statuteRe.MatchString(normalized):
		return model.CitationStatute
	case shortCaseRe.MatchString(normalized):
		return model.CitationShortCase
	case fullCaseRe.MatchString(normalized):
		return model.CitationFullCase
	default:
		return model.CitationUnknown
	}
}

func extractComponents(normalized string) *model.CitationComponents {
	m := fullCaseRe.FindStringSubmatch(normalized)
	if m == nil {
		return nil
	}
	comp := &model.CitationComponents{}
	for i, name := range fullCaseRe.SubexpNames() {
		if i >= len(m) || m[i] == "" {
			continue
		}
		switch name {
		case "name":
			comp.CaseName = m[i]
		case "vol":
			comp.Volume, _ = strconv.Atoi(m[i])
		case "rep":
			comp.Reporter = m[i]
		case "page":
			comp.Page, _ = strconv.Atoi(m[i])
		case "court":
			comp.Court = strings.TrimSpace(m[i])
		case "year":
			comp.Year, _ = strconv.Atoi(m[i])
		}
	}
	return comp
}

// IsFederal reports whether the citation's reporter is a federal reporter,
// which makes it eligible for the docket-record fallback lookup.
func IsFederal(c model.Citation) bool {
	if c.Components == nil {
		return false
	}
	return federalReporters[c.Components.Reporter]
}

// ResolveAntecedent rewrites a short-form citation (Id., supra, short case)
// to the full normalized citation it refers to. Full citations pass through.
func ResolveAntecedent(c model.Citation, antecedent string) model.Citation {
	switch c.Type {
	case model.CitationID, model.CitationSupra, model.CitationShortCase:
		if antecedent == "" {
			return c
		}
		resolved := Parse(antecedent)
		resolved.Raw = c.Raw
		return resolved
	default:
		return c
	}
}
