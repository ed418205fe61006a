package steps

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/citeguard/citeguard/internal/model"
	"github.com/citeguard/citeguard/internal/provider"
	"github.com/citeguard/citeguard/internal/resilience"
)

// authorityNow is swapped in tests to pin age and recency math.
var authorityNow = time.Now

// Classification thresholds.
const (
	controversialRatio    = 0.30
	controversialMinTotal = 10
	landmarkMinCitations  = 1000
	decliningAgeYears     = 10
	recentAgeYears        = 5
	establishedMinCites   = 100
)

// Sub-score weights. They sum to 1; the breakdown is surfaced in the
// result so a reviewer can see where a score came from.
var authorityWeights = map[string]float64{
	"total_citations":  0.25,
	"recent_citations": 0.20,
	"trend":            0.15,
	"court_level":      0.20,
	"negative_penalty": 0.15,
	"publication":      0.05,
}

var classMultipliers = map[model.AuthorityClass]float64{
	model.AuthorityLandmark:      1.10,
	model.AuthorityControversial: 0.70,
	model.AuthorityDeclining:     0.80,
}

// AuthorityStep is Step 6: deterministic authority-strength scoring from
// citation-count metrics. No model calls.
type AuthorityStep struct {
	citing   provider.CitingLookup
	registry *resilience.Registry
	log      *zap.Logger
}

// NewAuthorityStep wires the authority scorer.
func NewAuthorityStep(citing provider.CitingLookup, registry *resilience.Registry, log *zap.Logger) *AuthorityStep {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthorityStep{citing: citing, registry: registry, log: log}
}

// Run collects forward-citation metrics for the case and classifies its
// authority. A failed collection degrades to a data-poor RECENT default
// rather than failing the citation.
func (s *AuthorityStep) Run(ctx context.Context, cit model.Citation, existence model.ExistenceResult) (model.AuthorityResult, model.Usage) {
	start := time.Now()
	var usage model.Usage

	metrics, lookups, err := s.collect(ctx, existence)
	usage.LookupCalls += lookups
	if err != nil {
		s.log.Warn("authority metrics collection failed",
			zap.String("citation", cit.Normalized), zap.Error(err))
		res := score(metrics)
		res.Err = err.Error()
		res.Duration = time.Since(start)
		return res, usage
	}

	res := score(metrics)
	res.Duration = time.Since(start)
	return res, usage
}

func (s *AuthorityStep) collect(ctx context.Context, existence model.ExistenceResult) (model.AuthorityMetrics, int, error) {
	now := authorityNow()
	m := model.AuthorityMetrics{
		CourtLevel: courtLevel(existence.Court),
		Published:  existence.Status == model.ExistenceVerified,
	}
	if !existence.DateFiled.IsZero() {
		m.AgeYears = int(now.Sub(existence.DateFiled).Hours() / (24 * 365.25))
	}

	if existence.ClusterID == "" {
		return m, 0, nil
	}

	lookups := 0
	for page := 1; page <= maxCitingPages; page++ {
		var (
			cases []provider.CitingCase
			more  bool
		)
		err := s.registry.Call(ctx, "legal-api", func(ctx context.Context) error {
			var callErr error
			cases, more, callErr = s.citing.ForwardCitations(ctx, existence.ClusterID, page)
			return callErr
		})
		if err != nil {
			return m, lookups, err
		}
		lookups++

		for _, c := range cases {
			m.TotalCitations++
			if !c.DateFiled.IsZero() {
				age := now.Sub(c.DateFiled)
				if age <= 5*365*24*time.Hour {
					m.CitationsLast5++
				}
				if age <= 10*365*24*time.Hour {
					m.CitationsLast10++
				}
			}
			text := strings.ToLower(c.TreatmentText)
			if strings.Contains(text, "distinguished") {
				m.Distinguished++
			} else if containsAny(text, []string{"criticized", "questioned", "declined to follow"}) {
				m.Criticized++
			}
		}
		if !more {
			break
		}
	}
	return m, lookups, nil
}

// score is the pure classification and scoring core, split out so tests
// can exercise it without a lookup client.
func score(m model.AuthorityMetrics) model.AuthorityResult {
	class := classify(m)

	subs := map[string]float64{
		"total_citations":  clamp01(float64(m.TotalCitations) / 1000),
		"recent_citations": clamp01(float64(m.CitationsLast5) / 100),
		"trend":            trendScore(m),
		"court_level":      float64(m.CourtLevel) / 3,
		"negative_penalty": negativePenalty(m),
		"publication":      boolScore(m.Published),
	}

	var weighted float64
	for name, w := range authorityWeights {
		weighted += subs[name] * w
	}

	raw := weighted * 100
	if mult, ok := classMultipliers[class]; ok {
		raw *= mult
	}
	if raw < 0 {
		raw = 0
	}
	if raw > 100 {
		raw = 100
	}

	return model.AuthorityResult{
		Class:   class,
		Score:   raw,
		Metrics: m,
		Subs:    subs,
	}
}

// classify applies the fixed-order rules; the first match wins.
func classify(m model.AuthorityMetrics) model.AuthorityClass {
	negatives := m.Distinguished + m.Criticized
	if m.TotalCitations > controversialMinTotal &&
		float64(negatives)/float64(m.TotalCitations) > controversialRatio {
		return model.AuthorityControversial
	}
	if m.TotalCitations >= landmarkMinCitations && !declining(m) {
		return model.AuthorityLandmark
	}
	if m.AgeYears > decliningAgeYears && declining(m) {
		return model.AuthorityDeclining
	}
	if m.AgeYears <= recentAgeYears {
		return model.AuthorityRecent
	}
	if m.TotalCitations >= establishedMinCites {
		return model.AuthorityEstablished
	}
	// Data-poor default.
	return model.AuthorityRecent
}

// declining reports whether the last five years' citation pace has fallen
// below half of the preceding five years'.
func declining(m model.AuthorityMetrics) bool {
	older := m.CitationsLast10 - m.CitationsLast5
	if older <= 0 {
		return false
	}
	return float64(m.CitationsLast5) < float64(older)/2
}

func trendScore(m model.AuthorityMetrics) float64 {
	older := m.CitationsLast10 - m.CitationsLast5
	if older <= 0 {
		if m.CitationsLast5 > 0 {
			return 1
		}
		return 0.5
	}
	ratio := float64(m.CitationsLast5) / float64(older)
	if ratio > 2 {
		ratio = 2
	}
	return ratio / 2
}

// negativePenalty is 1 for a clean record, decaying to 0 as the
// negative-treatment ratio approaches half of all citations.
func negativePenalty(m model.AuthorityMetrics) float64 {
	if m.TotalCitations == 0 {
		return 1
	}
	ratio := float64(m.Distinguished+m.Criticized) / float64(m.TotalCitations)
	return clamp01(1 - ratio/0.5)
}

func courtLevel(court string) int {
	c := strings.ToLower(court)
	switch {
	case strings.Contains(c, "supreme"):
		return 3
	case strings.Contains(c, "appeal"), strings.Contains(c, "circuit"), strings.Contains(c, "appellate"):
		return 2
	case c == "":
		return 1
	default:
		return 1
	}
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
