package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/citeguard/citeguard/internal/model"
	"github.com/citeguard/citeguard/internal/pipeline"
)

var (
	proposition    string
	propType       string
	propQuote      string
	citesForElem   int
	antecedent     string
	orderID        string
	forceStage2    bool
	noCache        bool
	skipLayer3     bool
	verifyTimeout  time.Duration
	verifyOutJSON  string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <citation>",
	Short: "Verify a single citation against a proposition",
	Long: `Verify runs the full seven-step check for one citation:
existence, holding support, dicta detection, quote accuracy, bad-law
treatment, authority strength, and the compiled verdict, followed by
the compliance protocols.

Example:
  citeguard verify "Bell Atlantic Corp. v. Twombly, 550 U.S. 544 (2007)" \
    --proposition "a complaint must state a plausible claim for relief" \
    --type primary_standard
  citeguard verify "Id. at 678" --antecedent "Ashcroft v. Iqbal, 556 U.S. 662 (2009)" \
    --proposition "conclusory allegations are not entitled to the presumption of truth"`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&proposition, "proposition", "p", "", "proposition the citation supports (required)")
	verifyCmd.Flags().StringVar(&propType, "type", string(model.PropositionSecondary), "proposition type (primary_standard, required_element, secondary, context)")
	verifyCmd.Flags().StringVar(&propQuote, "quote", "", "passage the motion quotes from the opinion")
	verifyCmd.Flags().IntVar(&citesForElem, "citations-for-element", 0, "how many citations in the motion support this element (1 marks sole authority)")
	verifyCmd.Flags().StringVar(&antecedent, "antecedent", "", "full citation a short form (Id., supra) refers back to")
	verifyCmd.Flags().StringVar(&orderID, "order", "", "order ID scoping the cache and flags")
	verifyCmd.Flags().BoolVar(&forceStage2, "force-stage2", false, "always run the adversarial holding stage")
	verifyCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass both cache tiers")
	verifyCmd.Flags().BoolVar(&skipLayer3, "skip-layer3", false, "skip the bad-law model pass")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 3*time.Minute, "overall verification timeout")
	verifyCmd.Flags().StringVar(&verifyOutJSON, "json", "", "write the full verdict to a JSON file")

	_ = verifyCmd.MarkFlagRequired("proposition")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	verifier, cleanup, err := buildVerifier(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	prop := model.Proposition{
		Text:                proposition,
		Type:                model.PropositionType(propType),
		Quote:               propQuote,
		CitationsForElement: citesForElem,
	}
	opts := pipeline.Options{
		OrderID:     orderID,
		Antecedent:  antecedent,
		ForceStage2: forceStage2,
		SkipCache:   noCache,
		SkipLayer3:  skipLayer3,
	}

	verdict, err := verifier.Verify(ctx, args[0], prop, opts)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	printVerdict(verdict)

	if ok, reason := verifier.Flags().CanProceed(); !ok {
		fmt.Fprintf(os.Stderr, "\nHOLD: %s\n", reason)
	}

	if verifyOutJSON != "" {
		if err := writeJSON(verifyOutJSON, verdict); err != nil {
			return fmt.Errorf("write verdict: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", verifyOutJSON)
		}
	}
	return nil
}

func printVerdict(v *model.VerificationVerdict) {
	fmt.Printf("%s\n", v.Citation.Normalized)
	fmt.Printf("  Status:     %s (confidence %.2f)\n", v.Status, v.Confidence)
	if v.FromCache {
		fmt.Printf("  Source:     cache\n")
	}

	fmt.Printf("  Existence:  %s\n", v.Steps.Existence.Status)
	fmt.Printf("  Holding:    %s", v.Steps.Holding.Status)
	if v.Steps.Holding.HighStakes {
		fmt.Printf(" (high stakes)")
	}
	fmt.Println()
	fmt.Printf("  Dicta:      %s\n", v.Steps.Dicta.Classification)
	if v.Steps.Quote.Status != model.QuoteNotApplicable && v.Steps.Quote.Status != model.QuoteSkipped {
		fmt.Printf("  Quote:      %s (similarity %.2f)\n", v.Steps.Quote.Status, v.Steps.Quote.Similarity)
	}
	fmt.Printf("  Bad law:    %s", v.Steps.BadLaw.Status)
	if v.Steps.BadLaw.OverruledBy != "" {
		fmt.Printf(" (by %s)", v.Steps.BadLaw.OverruledBy)
	}
	fmt.Println()
	if v.Steps.Authority.Class != model.AuthoritySkipped {
		fmt.Printf("  Authority:  %s (score %.0f/100)\n", v.Steps.Authority.Class, v.Steps.Authority.Score)
	}

	if len(v.FlagCodes) > 0 {
		fmt.Printf("  Flags:      %s\n", strings.Join(v.FlagCodes, ", "))
	}
	for _, rec := range v.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}
	fmt.Printf("  Cost:       %d model calls, $%.4f, %v\n",
		v.Usage.ModelCalls, v.Usage.CostUSD, v.Duration.Round(time.Millisecond))
}

func writeJSON(path string, v interface{}) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
