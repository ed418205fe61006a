package steps

import (
	"context"
	"errors"

	"github.com/citeguard/citeguard/internal/model"
	"github.com/citeguard/citeguard/internal/provider"
	"github.com/citeguard/citeguard/internal/resilience"
)

// testRegistry returns a registry with retries disabled so error-path
// tests fail fast instead of sleeping through backoff.
func testRegistry() *resilience.Registry {
	return resilience.NewRegistry(
		resilience.RetryConfig{MaxAttempts: 1},
		resilience.DefaultCircuitConfig(),
	)
}

func fullCitation(volume int, reporter string, page int) model.Citation {
	normalized := model.Citation{
		Raw:  "test",
		Type: model.CitationFullCase,
		Components: &model.CitationComponents{
			Volume:   volume,
			Reporter: reporter,
			Page:     page,
		},
	}
	normalized.Normalized = "Test v. Case, " + reporter
	return normalized
}

// scriptedLLM replays scripted completions in order and records requests.
type scriptedLLM struct {
	responses []string
	errs      []error
	calls     []provider.CompletionRequest
}

func (f *scriptedLLM) Complete(_ context.Context, req provider.CompletionRequest) (*provider.Completion, error) {
	i := len(f.calls)
	f.calls = append(f.calls, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		return nil, errors.New("no scripted response left")
	}
	return &provider.Completion{
		Content:    f.responses[i],
		Model:      "scripted",
		TokensUsed: 100,
		CostUSD:    0.0001,
	}, nil
}

// pagedCiting serves forward citations in fixed-size pages.
type pagedCiting struct {
	cases    []provider.CitingCase
	pageSize int
	err      error
	calls    int
}

func (f *pagedCiting) ForwardCitations(_ context.Context, _ string, page int) ([]provider.CitingCase, bool, error) {
	f.calls++
	if f.err != nil {
		return nil, false, f.err
	}
	size := f.pageSize
	if size == 0 {
		size = 20
	}
	startIdx := (page - 1) * size
	if startIdx >= len(f.cases) {
		return nil, false, nil
	}
	end := startIdx + size
	if end > len(f.cases) {
		end = len(f.cases)
	}
	return f.cases[startIdx:end], end < len(f.cases), nil
}

// stubExistence answers the primary lookup with a fixed record.
type stubExistence struct {
	rec     *provider.ExistenceRecord
	err     error
	opinion string
	calls   int
}

func (f *stubExistence) Exists(_ context.Context, _ string) (*provider.ExistenceRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

func (f *stubExistence) OpinionText(_ context.Context, _ string) (string, error) {
	if f.opinion == "" {
		return "", errors.New("no opinion available")
	}
	return f.opinion, nil
}

type stubDocket struct {
	rec   *provider.ExistenceRecord
	err   error
	calls int
}

func (f *stubDocket) FindDocket(_ context.Context, _ string) (*provider.ExistenceRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

// noOverruled is an empty curated record.
type noOverruled struct{}

func (noOverruled) Lookup(model.Citation) (string, bool) { return "", false }
