package model

// PropositionType classifies how load-bearing a proposition is for the motion
type PropositionType string

const (
	PropositionPrimaryStandard PropositionType = "primary_standard" // The governing legal test
	PropositionRequiredElement PropositionType = "required_element" // An element the movant must establish
	PropositionSecondary       PropositionType = "secondary"        // Supporting but not dispositive
	PropositionContext         PropositionType = "context"          // Background only
)

// IsOutcomeDeterminative reports whether a mismatch on this proposition
// could change the motion's result.
func (t PropositionType) IsOutcomeDeterminative() bool {
	return t == PropositionPrimaryStandard || t == PropositionRequiredElement
}

// Proposition is the legal claim a citation is asserted to support
type Proposition struct {
	Text string          `json:"text"`
	Type PropositionType `json:"type"`

	// Quote is the directly quoted passage from the cited case, if the
	// motion quotes it. Empty when the citation is paraphrased.
	Quote string `json:"quote,omitempty"`

	// ElementID identifies the legal element this proposition supports.
	ElementID string `json:"element_id,omitempty"`

	// CitationsForElement is how many citations in the motion support the
	// same element. 1 means this citation is the sole authority.
	CitationsForElement int `json:"citations_for_element,omitempty"`
}

// HasDirectQuote reports whether the motion quotes the cited case verbatim.
func (p Proposition) HasDirectQuote() bool {
	return p.Quote != ""
}

// IsSoleAuthority reports whether this citation is the only one supporting
// its legal element.
func (p Proposition) IsSoleAuthority() bool {
	return p.CitationsForElement == 1
}
