// Package provider defines the capability interfaces the engine consumes
// and the concrete clients for the default legal-database and language-model
// backends. The pipeline depends only on the interfaces.
package provider

import (
	"context"
	"time"
)

// ExistenceRecord is the result of a case-law existence lookup
type ExistenceRecord struct {
	Found       bool      `json:"found"`
	ClusterID   string    `json:"cluster_id,omitempty"`
	URL         string    `json:"url,omitempty"`
	CaseName    string    `json:"case_name,omitempty"`
	Court       string    `json:"court,omitempty"`
	DateFiled   time.Time `json:"date_filed,omitempty"`
	Unpublished bool      `json:"unpublished,omitempty"`
	OpinionText string    `json:"-"`
}

// ExistenceLookup is the primary legal-database lookup
type ExistenceLookup interface {
	// Exists resolves a normalized citation. A miss is a normal result
	// (Found=false), not an error.
	Exists(ctx context.Context, normalizedCitation string) (*ExistenceRecord, error)

	// OpinionText fetches the full opinion text for a cluster, best-effort.
	OpinionText(ctx context.Context, clusterID string) (string, error)
}

// DocketLookup is the secondary docket-record lookup used as the federal
// fallback when the primary lookup misses.
type DocketLookup interface {
	FindDocket(ctx context.Context, normalizedCitation string) (*ExistenceRecord, error)
}

// CitingCase is one forward citation with its treatment language
type CitingCase struct {
	CaseName      string    `json:"case_name"`
	TreatmentText string    `json:"treatment_text"`
	DateFiled     time.Time `json:"date_filed"`
}

// CitingLookup pages through cases that cite a given case
type CitingLookup interface {
	// ForwardCitations returns one page of citing cases and whether more
	// pages remain. Pages start at 1.
	ForwardCitations(ctx context.Context, clusterID string, page int) ([]CitingCase, bool, error)
}

// CompletionRequest is a structured text-completion call
type CompletionRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string
	MaxTokens    int
	// JSONResponse asks the model to emit a single JSON object.
	JSONResponse bool
	// Adversarial marks Stage-2 calls so providers can route them to a
	// different model when configured.
	Adversarial bool
}

// Completion is a completion response with usage accounting
type Completion struct {
	Content    string
	Model      string
	TokensUsed int
	CostUSD    float64
}

// CompletionService is the capability interface shared by Steps 2, 3, and
// the bad-law check's Layer 3.
type CompletionService interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
