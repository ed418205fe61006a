package model

import "time"

// ManifestStatus records a protocol's evaluation state for one dispatch run
type ManifestStatus string

const (
	ProtocolNotEvaluated       ManifestStatus = "NOT_EVALUATED"
	ProtocolEvaluatedClean     ManifestStatus = "EVALUATED_CLEAN"
	ProtocolEvaluatedTriggered ManifestStatus = "EVALUATED_TRIGGERED"
)

// ProtocolResult is one rule's evaluation against a verification result
type ProtocolResult struct {
	Number    int          `json:"number"`
	Name      string       `json:"name"`
	Triggered bool         `json:"triggered"`
	Severity  FlagSeverity `json:"severity,omitempty"`
	// RequiresHold means the finding should pause the order until an
	// attorney reviews it.
	RequiresHold bool `json:"requires_hold"`
	// AISEntry is the audit information statement describing the finding.
	AISEntry string `json:"ais_entry,omitempty"`
	// DetectionOnly is true when the rule ran after a hold was already
	// triggered: it still evaluated and reported but took no action.
	DetectionOnly bool `json:"detection_only,omitempty"`
}

// ProtocolManifestEntry exists for every registered protocol on every
// dispatch run, whether or not the rule fired, so the audit trail is
// complete.
type ProtocolManifestEntry struct {
	Number int            `json:"number"`
	Name   string         `json:"name"`
	Status ManifestStatus `json:"status"`
}

// VerificationPhase gates which lifecycle phases protocols run in
type VerificationPhase string

const (
	PhaseDraft        VerificationPhase = "draft"
	PhaseVerification VerificationPhase = "verification"
	PhaseFinalReview  VerificationPhase = "final_review"
	PhaseFiled        VerificationPhase = "filed"
)

// AuditRecord is one append-only entry per step or protocol evaluation
type AuditRecord struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	OrderID   string    `json:"order_id,omitempty"`
	Citation  string    `json:"citation,omitempty"`
	Kind      string    `json:"kind"` // "step" or "protocol"
	Name      string    `json:"name"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
