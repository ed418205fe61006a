package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/citeguard/citeguard/internal/model"
)

const (
	defaultGroupSize = 3
	maxGroupSize     = 8
)

// BatchItem is one citation/proposition pair to verify.
type BatchItem struct {
	Citation    string            `json:"citation"`
	Proposition model.Proposition `json:"proposition"`
}

// BatchSummary aggregates one batch run.
type BatchSummary struct {
	Total    int           `json:"total"`
	Verified int           `json:"verified"`
	Flagged  int           `json:"flagged"`
	Rejected int           `json:"rejected"`
	Blocked  int           `json:"blocked"`
	Errors   int           `json:"errors"`
	Usage    model.Usage   `json:"usage"`
	Duration time.Duration `json:"duration_ms"`
}

// BatchResult is one batch run's verdicts in input order plus the summary.
type BatchResult struct {
	Verdicts []*model.VerificationVerdict `json:"verdicts"`
	// Errs holds per-item failures, indexed like Verdicts; a nil entry
	// means the item verified (whatever its status).
	Errs    []error      `json:"-"`
	Summary BatchSummary `json:"summary"`
}

// Progress is invoked after each item completes. verdict is nil when the
// item failed outright.
type Progress func(done, total int, verdict *model.VerificationVerdict, err error)

// Batch runs citations with bounded parallelism: fixed-size groups
// processed concurrently, with a fixed pause between groups so third-party
// rate limits hold at batch scale. Item failures never abort the batch.
func (v *Verifier) Batch(ctx context.Context, items []BatchItem, opts Options, groupSize int, groupDelay time.Duration, progress Progress) *BatchResult {
	start := verifierNow()
	out := &BatchResult{
		Verdicts: make([]*model.VerificationVerdict, len(items)),
		Errs:     make([]error, len(items)),
	}
	out.Summary.Total = len(items)
	if len(items) == 0 {
		return out
	}

	if groupSize <= 0 {
		groupSize = defaultGroupSize
	}
	if groupSize > maxGroupSize {
		groupSize = maxGroupSize
	}

	// One group per delay interval; the first group is not delayed.
	pacer := rate.NewLimiter(rate.Inf, 1)
	if groupDelay > 0 {
		pacer = rate.NewLimiter(rate.Every(groupDelay), 1)
	}

	done := 0
	for groupStart := 0; groupStart < len(items); groupStart += groupSize {
		if err := pacer.Wait(ctx); err != nil {
			for i := groupStart; i < len(items); i++ {
				out.Errs[i] = err
				out.Summary.Errors++
			}
			break
		}

		end := groupStart + groupSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := groupStart; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				verdict, err := v.Verify(ctx, items[i].Citation, items[i].Proposition, opts)
				out.Verdicts[i] = verdict
				out.Errs[i] = err
			}(i)
		}
		wg.Wait()

		for i := groupStart; i < end; i++ {
			done++
			out.tally(i)
			if progress != nil {
				progress(done, len(items), out.Verdicts[i], out.Errs[i])
			}
		}
	}

	out.Summary.Duration = verifierNow().Sub(start)
	return out
}

func (r *BatchResult) tally(i int) {
	if r.Errs[i] != nil || r.Verdicts[i] == nil {
		r.Summary.Errors++
		return
	}
	v := r.Verdicts[i]
	r.Summary.Usage.Add(v.Usage)
	switch v.Status {
	case model.VerdictVerified:
		r.Summary.Verified++
	case model.VerdictFlagged:
		r.Summary.Flagged++
	case model.VerdictRejected:
		r.Summary.Rejected++
	case model.VerdictBlocked:
		r.Summary.Blocked++
	}
}

// ReadBatchFile parses a batch input file: one item per line in the form
//
//	citation | proposition text [| type [| quoted passage]]
//
// Blank lines and #-comments are skipped; duplicate lines are collapsed.
func ReadBatchFile(path string) ([]BatchItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var items []BatchItem
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true

		item, err := parseBatchLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	return items, nil
}

func parseBatchLine(line string) (BatchItem, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return BatchItem{}, fmt.Errorf("expected 'citation | proposition', got %q", line)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" || parts[1] == "" {
		return BatchItem{}, fmt.Errorf("empty citation or proposition in %q", line)
	}

	item := BatchItem{
		Citation:    parts[0],
		Proposition: model.Proposition{Text: parts[1], Type: model.PropositionSecondary},
	}
	if len(parts) > 2 && parts[2] != "" {
		item.Proposition.Type = model.PropositionType(parts[2])
	}
	if len(parts) > 3 && parts[3] != "" {
		item.Proposition.Quote = parts[3]
	}
	return item, nil
}
