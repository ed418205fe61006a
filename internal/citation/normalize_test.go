package citation

import (
	"testing"

	"github.com/citeguard/citeguard/internal/model"
)

func TestNormalizeCanonicalizes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Smith  v.  Jones,   123 F. 3d 456", "Smith v. Jones, 123 F.3d 456"},
		{"Smith vs Jones, 123 F.3d 456", "Smith v. Jones, 123 F.3d 456"},
		{"Smith vs. Jones, 123 F.3d 456", "Smith v. Jones, 123 F.3d 456"},
		{"Roe v. Wade, 410 U. S. 113 (1973)", "Roe v. Wade, 410 U.S. 113 (1973)"},
		{"In re Doe, 45 F. Supp. 2d 100", "In re Doe, 45 F.Supp.2d 100"},
		{"  People v. Smith, 30 Cal. App. 4th 12  ", "People v. Smith, 30 Cal.App. 4th 12"},
		{"Brown v. Board, 98 L. Ed. 873", "Brown v. Board, 98 L.Ed. 873"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"Smith  vs  Jones,  123 F. 3d 456 (9th Cir. 2020)",
		"Roe v. Wade, 410 U. S. 113 (1973)",
		"Id. at 678",
		"42 U.S.C. § 1983",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in   string
		want model.CitationType
	}{
		{"Bell Atlantic Corp. v. Twombly, 550 U.S. 544 (2007)", model.CitationFullCase},
		{"550 U.S. 544", model.CitationFullCase},
		{"Twombly, 550 U.S. at 555", model.CitationShortCase},
		{"Id.", model.CitationID},
		{"Id. at 678", model.CitationID},
		{"Twombly, supra, at 555", model.CitationSupra},
		{"42 U.S.C. § 1983", model.CitationStatute},
		{"29 C.F.R. 1604.11", model.CitationStatute},
		{"see generally the discussion above", model.CitationUnknown},
	}
	for _, tt := range tests {
		c := Parse(tt.in)
		if c.Type != tt.want {
			t.Errorf("Parse(%q).Type = %s, want %s", tt.in, c.Type, tt.want)
		}
	}
}

func TestParseExtractsComponents(t *testing.T) {
	c := Parse("Bell Atlantic Corp. v. Twombly, 550 U.S. 544, 555 (2007)")
	if c.Components == nil {
		t.Fatal("full case citation must yield components")
	}
	comp := c.Components
	if comp.CaseName != "Bell Atlantic Corp. v. Twombly" {
		t.Errorf("CaseName = %q", comp.CaseName)
	}
	if comp.Volume != 550 || comp.Reporter != "U.S." || comp.Page != 544 {
		t.Errorf("cite = %d %s %d, want 550 U.S. 544", comp.Volume, comp.Reporter, comp.Page)
	}
	if comp.Year != 2007 {
		t.Errorf("Year = %d, want 2007", comp.Year)
	}
}

func TestParseExtractsCourt(t *testing.T) {
	c := Parse("United States v. Carroll Towing Co., 159 F.2d 169 (2d Cir. 1947)")
	if c.Components == nil {
		t.Fatal("expected components")
	}
	if c.Components.Court != "2d Cir." {
		t.Errorf("Court = %q, want %q", c.Components.Court, "2d Cir.")
	}
	if c.Components.Year != 1947 {
		t.Errorf("Year = %d, want 1947", c.Components.Year)
	}
}

func TestIsFederal(t *testing.T) {
	tests := []struct {
		cite string
		want bool
	}{
		{"Smith v. Jones, 123 F.3d 456 (9th Cir. 2020)", true},
		{"Roe v. Wade, 410 U.S. 113 (1973)", true},
		{"Doe v. Roe, 45 F.Supp.2d 100 (S.D.N.Y. 1999)", true},
		{"People v. Smith, 30 Cal.App.4th 12 (1994)", false},
		{"Id. at 678", false},
	}
	for _, tt := range tests {
		if got := IsFederal(Parse(tt.cite)); got != tt.want {
			t.Errorf("IsFederal(%q) = %v, want %v", tt.cite, got, tt.want)
		}
	}
}

func TestResolveAntecedent(t *testing.T) {
	full := "Ashcroft v. Iqbal, 556 U.S. 662 (2009)"

	resolved := ResolveAntecedent(Parse("Id. at 678"), full)
	if resolved.Type != model.CitationFullCase {
		t.Fatalf("resolved type = %s, want full case", resolved.Type)
	}
	if resolved.Normalized != full {
		t.Errorf("Normalized = %q, want %q", resolved.Normalized, full)
	}
	if resolved.Raw != "Id. at 678" {
		t.Errorf("Raw = %q, original spelling must be preserved", resolved.Raw)
	}

	// A full citation passes through untouched.
	direct := Parse(full)
	if got := ResolveAntecedent(direct, "Other v. Case, 1 U.S. 1 (1800)"); got.Normalized != full {
		t.Errorf("full citation must not be rewritten, got %q", got.Normalized)
	}

	// A short form with no antecedent stays unresolved.
	unresolved := ResolveAntecedent(Parse("Id."), "")
	if unresolved.Type != model.CitationID {
		t.Errorf("type = %s, want unresolved id citation", unresolved.Type)
	}
}

func TestCitationKeyStableAcrossSpellings(t *testing.T) {
	a := Parse("Smith v. Jones, 123 F. 3d 456 (9th Cir. 2020)")
	b := Parse("Smith  vs  Jones, 123 F.3d 456 (9th Cir. 2020)")
	if a.Key() != b.Key() {
		t.Errorf("equivalent spellings must share a key: %q vs %q", a.Key(), b.Key())
	}
}
