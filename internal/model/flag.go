package model

import "time"

// FlagCategory determines how a flag gates the downstream workflow
type FlagCategory string

const (
	FlagBlocking       FlagCategory = "BLOCKING"
	FlagAttorneyReview FlagCategory = "ATTORNEY_REVIEW"
	FlagInfo           FlagCategory = "INFO"
)

// FlagSeverity ranks a flag within its category
type FlagSeverity string

const (
	SeverityCritical FlagSeverity = "critical"
	SeverityHigh     FlagSeverity = "high"
	SeverityMedium   FlagSeverity = "medium"
	SeverityLow      FlagSeverity = "low"
	SeverityInfo     FlagSeverity = "info"
)

// FlagCode identifies a flag definition in the static table
type FlagCode string

// Flag is a categorized issue surfaced by a step or protocol. Flags are
// keyed by (code, citation): the same code against different citations
// coexists. Resolution mutates the flag in place; only explicit removal
// deletes it.
type Flag struct {
	Code     FlagCode     `json:"code"`
	Category FlagCategory `json:"category"`
	Severity FlagSeverity `json:"severity"`
	Message  string       `json:"message"`

	// Citation is the normalized citation the flag refers to, if any.
	Citation string `json:"citation,omitempty"`
	// Origin is the step or protocol that raised the flag.
	Origin string `json:"origin,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	Resolved   bool       `json:"resolved"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	Resolution string     `json:"resolution,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// FlagKey is the identity of a flag in the manager
func (f Flag) FlagKey() string {
	return string(f.Code) + "|" + f.Citation
}
