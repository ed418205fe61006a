package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/citeguard/citeguard/internal/confidence"
	"github.com/citeguard/citeguard/internal/model"
	"github.com/citeguard/citeguard/internal/provider"
	"github.com/citeguard/citeguard/internal/resilience"
)

// maxCitingPages bounds the forward-citation walk. CourtListener pages are
// 20 results, so 10 pages covers the treatment history of all but the most
// heavily cited cases.
const maxCitingPages = 10

// layer3NegativeCutoff: once Layer 1 has found more than this many negative
// treatments the record speaks for itself and the model pass adds nothing.
const layer3NegativeCutoff = 3

const badLawSystemPrompt = `You are a legal research analyst assessing whether a case remains good law. Given the case and excerpts of its citation treatment history, respond with a single JSON object: {"status": "good_law"|"caution"|"negative_treatment", "confidence": 0.0-1.0, "explanation": "..."}`

// overrulePhrases is explicit overruling language in treatment text.
// A match is treated as definitive even without a curated-record entry.
var overrulePhrases = []string{
	"overruled",
	"overruling",
	"abrogated",
	"abrogating",
	"superseded by statute",
	"no longer good law",
	"reversed and remanded",
}

// negativePhrases signals short of overruling.
var negativePhrases = []string{
	"distinguished",
	"criticized",
	"questioned",
	"limited",
	"declined to follow",
	"declined to extend",
	"disagreed with",
	"called into doubt",
	"cast doubt",
}

// positivePhrases counts toward the treatment denominator's healthy side.
var positivePhrases = []string{
	"followed",
	"affirmed",
	"relied on",
	"cited with approval",
	"adopted",
	"applied",
	"reaffirmed",
}

// BadLawStep is Step 5: the three-layer subsequent-history check. Layer 1
// scans forward-citation treatment language, Layer 2 consults the curated
// overruled record, and Layer 3 asks a model only when the first two are
// inconclusive. Layers 1 and 2 have independent inputs and run concurrently.
type BadLawStep struct {
	citing     provider.CitingLookup
	overruled  OverruledIndex
	llm        provider.CompletionService
	registry   *resilience.Registry
	skipLayer3 bool
	log        *zap.Logger
}

// NewBadLawStep wires the bad-law check. llm may be nil when Layer 3 is
// disabled.
func NewBadLawStep(citing provider.CitingLookup, overruled OverruledIndex, llm provider.CompletionService, registry *resilience.Registry, skipLayer3 bool, log *zap.Logger) *BadLawStep {
	if log == nil {
		log = zap.NewNop()
	}
	return &BadLawStep{
		citing:     citing,
		overruled:  overruled,
		llm:        llm,
		registry:   registry,
		skipLayer3: skipLayer3 || llm == nil,
		log:        log,
	}
}

type layer1Finding struct {
	counts      model.TreatmentCounts
	overruledIn string // case name carrying explicit overruling language
	samples     []string
	pages       int
}

type badLawResponse struct {
	Status      string  `json:"status"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// Run evaluates subsequent history for the case behind clusterID. The
// precedence is fixed: a curated-record match or explicit overruling
// language is OVERRULED; heavy or explicit negative treatment is
// NEGATIVE_TREATMENT; lighter signals degrade to CAUTION; a clean record
// is GOOD_LAW. skipLayer3 lets a caller suppress the model pass for this
// run on top of the configured default.
func (s *BadLawStep) Run(ctx context.Context, cit model.Citation, clusterID string, skipLayer3 bool) (model.BadLawResult, model.Usage) {
	start := time.Now()
	var usage model.Usage

	var (
		l1          layer1Finding
		l1Err       error
		overruledBy string
		l2Found     bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l1, l1Err = s.layer1(gctx, clusterID)
		// Layer 1 failure degrades the result, it does not cancel Layer 2.
		return nil
	})
	g.Go(func() error {
		overruledBy, l2Found = s.overruled.Lookup(cit)
		return nil
	})
	_ = g.Wait()
	usage.LookupCalls += l1.pages

	if l2Found {
		return model.BadLawResult{
			Status:      model.BadLawOverruled,
			Confidence:  1.0,
			Treatment:   l1.counts,
			OverruledBy: overruledBy,
			Explanation: "listed in the curated overruled-cases record",
			Duration:    time.Since(start),
		}, usage
	}

	if l1Err != nil {
		s.log.Warn("forward-citation scan failed",
			zap.String("citation", cit.Normalized), zap.Error(l1Err))
		return model.BadLawResult{
			Status:      model.BadLawCaution,
			Confidence:  0.3,
			Explanation: "treatment history unavailable",
			Err:         l1Err.Error(),
			Duration:    time.Since(start),
		}, usage
	}

	if l1.overruledIn != "" {
		return model.BadLawResult{
			Status:      model.BadLawOverruled,
			Confidence:  0.9,
			Treatment:   l1.counts,
			OverruledBy: l1.overruledIn,
			Explanation: "explicit overruling language in " + l1.overruledIn,
			Duration:    time.Since(start),
		}, usage
	}

	ratio := negativeRatio(l1.counts)
	if l1.counts.Negative >= 3 && ratio > 0.30 {
		return model.BadLawResult{
			Status:     model.BadLawNegativeTreatment,
			Confidence: 0.85,
			Treatment:  l1.counts,
			Explanation: fmt.Sprintf("%d of %d treatment signals are negative",
				l1.counts.Negative, l1.counts.Total),
			Duration: time.Since(start),
		}, usage
	}

	// Layer 3: a model pass over the treatment excerpts, only when the
	// record is thin enough to be genuinely ambiguous.
	if !s.skipLayer3 && !skipLayer3 && l1.counts.Negative > 0 && l1.counts.Negative <= layer3NegativeCutoff {
		res, l3Usage, err := s.layer3(ctx, cit, l1)
		usage.Add(l3Usage)
		if err != nil {
			s.log.Warn("bad-law layer 3 failed",
				zap.String("citation", cit.Normalized), zap.Error(err))
		} else {
			res.Treatment = l1.counts
			res.Layer3Ran = true
			res.Duration = time.Since(start)
			return res, usage
		}
	}

	if l1.counts.Negative > 0 {
		return model.BadLawResult{
			Status:     model.BadLawCaution,
			Confidence: 0.7,
			Treatment:  l1.counts,
			Explanation: fmt.Sprintf("%d negative treatment signal(s) in %d citing cases",
				l1.counts.Negative, l1.counts.Total),
			Duration: time.Since(start),
		}, usage
	}

	return model.BadLawResult{
		Status:     model.BadLawGood,
		Confidence: 0.95,
		Treatment:  l1.counts,
		Duration:   time.Since(start),
	}, usage
}

// layer1 pages through forward citations classifying each treatment text.
func (s *BadLawStep) layer1(ctx context.Context, clusterID string) (layer1Finding, error) {
	var finding layer1Finding
	if clusterID == "" {
		return finding, nil
	}

	for page := 1; page <= maxCitingPages; page++ {
		var (
			cases []provider.CitingCase
			more  bool
		)
		err := s.registry.Call(ctx, "legal-api", func(ctx context.Context) error {
			var callErr error
			cases, more, callErr = s.citing.ForwardCitations(ctx, clusterID, page)
			return callErr
		})
		if err != nil {
			return finding, err
		}
		finding.pages++

		for _, c := range cases {
			finding.counts.Total++
			text := strings.ToLower(c.TreatmentText)
			switch {
			case containsAny(text, overrulePhrases):
				finding.counts.Negative++
				if finding.overruledIn == "" {
					finding.overruledIn = c.CaseName
				}
				finding.samples = appendSample(finding.samples, c)
			case containsAny(text, negativePhrases):
				finding.counts.Negative++
				finding.samples = appendSample(finding.samples, c)
			case containsAny(text, positivePhrases):
				finding.counts.Positive++
			}
		}
		if !more {
			break
		}
	}
	return finding, nil
}

func (s *BadLawStep) layer3(ctx context.Context, cit model.Citation, l1 layer1Finding) (model.BadLawResult, model.Usage, error) {
	prompt := fmt.Sprintf("Case: %s\nTreatment signals: %d total, %d negative, %d positive.\n",
		cit.Normalized, l1.counts.Total, l1.counts.Negative, l1.counts.Positive)
	if len(l1.samples) > 0 {
		prompt += "\nNegative treatment excerpts:\n" + strings.Join(l1.samples, "\n")
	}

	var comp *provider.Completion
	err := s.registry.Call(ctx, "llm", func(ctx context.Context) error {
		var callErr error
		comp, callErr = s.llm.Complete(ctx, provider.CompletionRequest{
			Prompt:       prompt,
			SystemPrompt: badLawSystemPrompt,
			JSONResponse: true,
		})
		return callErr
	})
	var usage model.Usage
	if comp != nil {
		usage = model.Usage{ModelCalls: 1, TokensUsed: comp.TokensUsed, CostUSD: comp.CostUSD}
	}
	if err != nil {
		return model.BadLawResult{}, usage, err
	}

	var resp badLawResponse
	if err := decodeModelJSON(comp.Content, &resp); err != nil {
		return model.BadLawResult{}, usage, err
	}

	status := model.BadLawCaution
	if strings.EqualFold(strings.TrimSpace(resp.Status), "negative_treatment") {
		status = model.BadLawNegativeTreatment
	} else if strings.EqualFold(strings.TrimSpace(resp.Status), "good_law") {
		status = model.BadLawGood
	}
	return model.BadLawResult{
		Status:      status,
		Confidence:  confidence.Normalize(resp.Confidence),
		Explanation: resp.Explanation,
	}, usage, nil
}

func negativeRatio(c model.TreatmentCounts) float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Negative) / float64(c.Total)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func appendSample(samples []string, c provider.CitingCase) []string {
	if len(samples) >= 8 {
		return samples
	}
	return append(samples, fmt.Sprintf("- %s: %s", c.CaseName, truncate(c.TreatmentText, 300)))
}
