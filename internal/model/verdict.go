package model

import "time"

// VerdictStatus is the composite terminal status compiled by Step 7
type VerdictStatus string

const (
	VerdictVerified VerdictStatus = "VERIFIED"
	VerdictFlagged  VerdictStatus = "FLAGGED"
	VerdictRejected VerdictStatus = "REJECTED"
	VerdictBlocked  VerdictStatus = "BLOCKED"
)

// StepResults bundles the six step records a verdict is compiled from
type StepResults struct {
	Existence ExistenceResult `json:"existence"`
	Holding   HoldingResult   `json:"holding"`
	Dicta     DictaResult     `json:"dicta"`
	Quote     QuoteResult     `json:"quote"`
	BadLaw    BadLawResult    `json:"bad_law"`
	Authority AuthorityResult `json:"authority"`
}

// Usage tracks external-call cost for a verification run
type Usage struct {
	ModelCalls  int     `json:"model_calls"`
	TokensUsed  int     `json:"tokens_used"`
	CostUSD     float64 `json:"cost_usd"`
	LookupCalls int     `json:"lookup_calls"`
}

// Add merges another usage record into this one.
func (u *Usage) Add(other Usage) {
	u.ModelCalls += other.ModelCalls
	u.TokensUsed += other.TokensUsed
	u.CostUSD += other.CostUSD
	u.LookupCalls += other.LookupCalls
}

// VerificationVerdict is the immutable composite result for one
// (citation, proposition, run). Status is always derived from the step
// results by fixed precedence rules, never set independently.
type VerificationVerdict struct {
	ID          string        `json:"id"`
	OrderID     string        `json:"order_id,omitempty"`
	Citation    Citation      `json:"citation"`
	Proposition Proposition   `json:"proposition"`
	Status      VerdictStatus `json:"status"`
	Confidence  float64       `json:"confidence"`

	FlagCodes       []string `json:"flag_codes,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`

	Steps    StepResults   `json:"steps"`
	Usage    Usage         `json:"usage"`
	Duration time.Duration `json:"duration_ms"`

	CreatedAt time.Time `json:"created_at"`
	FromCache bool      `json:"from_cache,omitempty"`
}

// IsTerminal reports whether the verdict recommends a hard gate downstream.
// BLOCKED and REJECTED are advisory recommendations that the filing
// workflow enforces; the engine itself never files or withholds anything.
func (v VerificationVerdict) IsTerminal() bool {
	return v.Status == VerdictBlocked || v.Status == VerdictRejected
}
