package model

// CitationType classifies the form a citation takes in a filing
type CitationType string

const (
	CitationFullCase  CitationType = "full_case"  // 123 F.3d 456 (9th Cir. 2020)
	CitationShortCase CitationType = "short_case" // Smith, 123 F.3d at 460
	CitationID        CitationType = "id"         // Id. / Id. at 12
	CitationSupra     CitationType = "supra"      // Smith, supra, at 14
	CitationStatute   CitationType = "statute"    // 42 U.S.C. § 1983
	CitationUnknown   CitationType = "unknown"
)

// CitationComponents holds the structured pieces extracted from a full case citation
type CitationComponents struct {
	Volume   int    `json:"volume,omitempty"`
	Reporter string `json:"reporter,omitempty"`
	Page     int    `json:"page,omitempty"`
	Year     int    `json:"year,omitempty"`
	Court    string `json:"court,omitempty"`
	CaseName string `json:"case_name,omitempty"`
}

// Citation is the immutable verification input. Raw is the text as drafted;
// Normalized is the canonicalized form used for lookups and cache keys.
type Citation struct {
	Raw        string              `json:"raw"`
	Normalized string              `json:"normalized"`
	Type       CitationType        `json:"type"`
	Components *CitationComponents `json:"components,omitempty"`
}

// Key returns the identity used for caching and deduplication.
func (c Citation) Key() string {
	if c.Normalized != "" {
		return c.Normalized
	}
	return c.Raw
}
