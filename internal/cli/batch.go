package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/citeguard/citeguard/internal/model"
	"github.com/citeguard/citeguard/internal/pipeline"
)

var (
	groupSize    int
	groupDelay   time.Duration
	batchTimeout time.Duration
	batchOutJSON string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify every citation in a batch file",
	Long: `Batch verifies citations from an input file, one per line:

  citation | proposition [| type [| quoted passage]]

Blank lines and #-comments are skipped; duplicates are collapsed.
Citations run in small concurrent groups with a pause between groups so
upstream rate limits hold.

Example:
  citeguard batch motion-citations.txt --order ORD-2041
  citeguard batch motion-citations.txt --group-size 5 --group-delay 250ms --json report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&groupSize, "group-size", 0, "concurrent citations per group (default from config, bounded 1-8)")
	batchCmd.Flags().DurationVar(&groupDelay, "group-delay", -1, "pause between groups (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 15*time.Minute, "total timeout for the batch")
	batchCmd.Flags().StringVar(&batchOutJSON, "json", "", "write verdicts and summary to a JSON file")

	batchCmd.Flags().StringVar(&orderID, "order", "", "order ID scoping the cache and flags")
	batchCmd.Flags().BoolVar(&forceStage2, "force-stage2", false, "always run the adversarial holding stage")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass both cache tiers")
	batchCmd.Flags().BoolVar(&skipLayer3, "skip-layer3", false, "skip the bad-law model pass")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	items, err := pipeline.ReadBatchFile(file)
	if err != nil {
		return fmt.Errorf("read batch file: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("no citations in %s", file)
	}

	verifier, cleanup, err := buildVerifier(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	size := groupSize
	if size <= 0 {
		size = cfg.Batch.GroupSize
	}
	delay := groupDelay
	if delay < 0 {
		delay = time.Duration(cfg.Batch.GroupDelayMS) * time.Millisecond
	}

	fmt.Fprintf(os.Stderr, "Verifying %d citations (groups of %d, %v between groups)\n\n", len(items), size, delay)

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	opts := pipeline.Options{
		OrderID:     orderID,
		ForceStage2: forceStage2,
		SkipCache:   noCache,
		SkipLayer3:  skipLayer3,
	}

	progress := func(done, total int, verdict *model.VerificationVerdict, err error) {
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "[%d/%d] ✗ %v\n", done, total, err)
		case verdict != nil:
			fmt.Fprintf(os.Stderr, "[%d/%d] %-8s %s\n", done, total, verdict.Status, verdict.Citation.Normalized)
		}
	}

	result := verifier.Batch(ctx, items, opts, size, delay, progress)
	sum := result.Summary

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d citations\n", sum.Total)
	fmt.Fprintf(os.Stderr, "  Verified:  %d\n", sum.Verified)
	fmt.Fprintf(os.Stderr, "  Flagged:   %d\n", sum.Flagged)
	fmt.Fprintf(os.Stderr, "  Rejected:  %d\n", sum.Rejected)
	fmt.Fprintf(os.Stderr, "  Blocked:   %d\n", sum.Blocked)
	if sum.Errors > 0 {
		fmt.Fprintf(os.Stderr, "  Errors:    %d\n", sum.Errors)
	}
	fmt.Fprintf(os.Stderr, "  Cost:      %d model calls, $%.4f\n", sum.Usage.ModelCalls, sum.Usage.CostUSD)
	fmt.Fprintf(os.Stderr, "  Duration:  %v\n", sum.Duration.Round(time.Millisecond))

	if flagged := verifier.Flags().Active(); len(flagged) > 0 {
		fmt.Fprintf(os.Stderr, "\n  Open flags: %d\n", len(flagged))
	}
	if ok, reason := verifier.Flags().CanProceed(); !ok {
		fmt.Fprintf(os.Stderr, "\nHOLD: %s\n", reason)
	}

	if batchOutJSON != "" {
		if err := writeJSON(batchOutJSON, result); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "\nWrote %s\n", batchOutJSON)
	}

	if sum.Errors > 0 {
		return fmt.Errorf("%d of %d citations failed to verify", sum.Errors, sum.Total)
	}
	return nil
}
