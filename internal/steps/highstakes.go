package steps

import "github.com/citeguard/citeguard/internal/model"

// IsHighStakes reports whether a citation demands maximal scrutiny. All
// three conditions must hold: the citation is the sole authority for its
// legal element, the proposition is outcome-determinative, and the motion
// quotes the case directly. HIGH_STAKES unconditionally forces the
// adversarial second stage of the holding check regardless of Stage-1
// confidence.
func IsHighStakes(prop model.Proposition) bool {
	return prop.IsSoleAuthority() &&
		prop.Type.IsOutcomeDeterminative() &&
		prop.HasDirectQuote()
}
