// Package pipeline orchestrates the seven-step verification of a single
// citation and the bounded-concurrency batch runner on top of it.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/citeguard/citeguard/internal/audit"
	"github.com/citeguard/citeguard/internal/cache"
	"github.com/citeguard/citeguard/internal/citation"
	"github.com/citeguard/citeguard/internal/flags"
	"github.com/citeguard/citeguard/internal/model"
	"github.com/citeguard/citeguard/internal/protocol"
	"github.com/citeguard/citeguard/internal/resilience"
	"github.com/citeguard/citeguard/internal/steps"
)

// verifierNow is injectable for tests.
var verifierNow = time.Now

// Options tune a single verification run.
type Options struct {
	// OrderID scopes caching and flags to one client order; empty means
	// the shared default scope.
	OrderID string
	// Phase gates protocol dispatch; the zero value means verification.
	Phase model.VerificationPhase
	// Antecedent resolves short-form citations (Id., supra, short case)
	// to their full citation.
	Antecedent string
	// ForceStage2 always runs the adversarial holding stage.
	ForceStage2 bool
	// SkipCache bypasses both cache tiers for this run.
	SkipCache bool
	// SkipLayer3 suppresses the bad-law model pass.
	SkipLayer3 bool
}

// Verifier drives Steps 1-7 for a citation, then protocol dispatch and
// flag merging. Step failures never escape: each step degrades into its
// own result record and the run always reaches Step 7.
type Verifier struct {
	existence  *steps.ExistenceStep
	holding    *steps.HoldingStep
	dicta      *steps.DictaStep
	quote      *steps.QuoteStep
	badlaw     *steps.BadLawStep
	authority  *steps.AuthorityStep
	dispatcher *protocol.Dispatcher
	flags      *flags.Manager
	verdicts   *cache.VerdictCache
	registry   *resilience.Registry
	sink       audit.Sink
	cfg        model.HoldingConfig
	log        *zap.Logger
}

// Deps bundles the verifier's collaborators.
type Deps struct {
	Existence  *steps.ExistenceStep
	Holding    *steps.HoldingStep
	Dicta      *steps.DictaStep
	Quote      *steps.QuoteStep
	BadLaw     *steps.BadLawStep
	Authority  *steps.AuthorityStep
	Dispatcher *protocol.Dispatcher
	Flags      *flags.Manager
	Verdicts   *cache.VerdictCache
	Registry   *resilience.Registry
	Sink       audit.Sink
	HoldingCfg model.HoldingConfig
	Log        *zap.Logger
}

// NewVerifier assembles the orchestrator.
func NewVerifier(d Deps) *Verifier {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Sink == nil {
		d.Sink = audit.NopSink{}
	}
	return &Verifier{
		existence:  d.Existence,
		holding:    d.Holding,
		dicta:      d.Dicta,
		quote:      d.Quote,
		badlaw:     d.BadLaw,
		authority:  d.Authority,
		dispatcher: d.Dispatcher,
		flags:      d.Flags,
		verdicts:   d.Verdicts,
		registry:   d.Registry,
		sink:       d.Sink,
		cfg:        d.HoldingCfg,
		log:        d.Log,
	}
}

// Flags exposes the flag manager for canProceed and summary queries.
func (v *Verifier) Flags() *flags.Manager { return v.flags }

// Dispatch runs the protocol rule set against an existing verdict.
func (v *Verifier) Dispatch(verdict *model.VerificationVerdict, phase model.VerificationPhase) protocol.Outcome {
	return v.dispatcher.Dispatch(verdict, phase)
}

// Verify runs the full pipeline for one (citation, proposition) pair.
// Concurrent calls for the same pair within an order share a single run.
func (v *Verifier) Verify(ctx context.Context, rawCitation string, prop model.Proposition, opts Options) (*model.VerificationVerdict, error) {
	cit := citation.Parse(rawCitation)
	cit = citation.ResolveAntecedent(cit, opts.Antecedent)
	if opts.Phase == "" {
		opts.Phase = model.PhaseVerification
	}

	key := cache.Key(cit.Key(), prop.Text)

	if !opts.SkipCache && v.verdicts != nil {
		if cached, found := v.verdicts.Get(ctx, key, opts.OrderID); found {
			v.log.Debug("verification served from cache",
				zap.String("citation", cit.Normalized),
				zap.String("order_id", opts.OrderID))
			hit := *cached
			hit.FromCache = true
			return &hit, nil
		}
	}

	// At most one concurrent run per (order, citation, proposition);
	// latecomers share the winner's verdict.
	result, err, _ := v.registry.Do(opts.OrderID+"|"+key, func() (interface{}, error) {
		return v.run(ctx, cit, prop, opts, key)
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.VerificationVerdict), nil
}

func (v *Verifier) run(ctx context.Context, cit model.Citation, prop model.Proposition, opts Options, key string) (*model.VerificationVerdict, error) {
	start := verifierNow()
	runID := uuid.NewString()
	highStakes := steps.IsHighStakes(prop)

	verdict := &model.VerificationVerdict{
		ID:          runID,
		OrderID:     opts.OrderID,
		Citation:    cit,
		Proposition: prop,
		CreatedAt:   start.UTC(),
	}

	results := model.StepResults{
		Existence: model.SkippedExistence(),
		Holding:   model.SkippedHolding(),
		Dicta:     model.SkippedDicta(),
		Quote:     model.SkippedQuote(),
		BadLaw:    model.SkippedBadLaw(),
		Authority: model.SkippedAuthority(),
	}
	var usage model.Usage

	results.Existence = v.existence.Run(ctx, cit)
	usage.LookupCalls++
	v.record(runID, opts.OrderID, cit, model.StepExistence, string(results.Existence.Status), results.Existence.Err)

	// Step 1 is the sole hard gate: an unresolvable citation skips every
	// downstream step.
	if results.Existence.Status != model.ExistenceNotFound && results.Existence.Status != model.ExistenceError {
		opinion := results.Existence.OpinionText

		var stepUsage model.Usage
		results.Holding, stepUsage = v.holding.Run(ctx, cit, prop, opinion, highStakes, opts.ForceStage2 || v.cfg.ForceStage2)
		usage.Add(stepUsage)
		v.record(runID, opts.OrderID, cit, model.StepHolding, string(results.Holding.Status), results.Holding.Err)

		results.Dicta, stepUsage = v.dicta.Run(ctx, cit, prop, opinion)
		usage.Add(stepUsage)
		v.record(runID, opts.OrderID, cit, model.StepDicta, string(results.Dicta.Classification), results.Dicta.Err)

		results.Quote = v.quote.Run(prop, opinion)
		v.record(runID, opts.OrderID, cit, model.StepQuote, string(results.Quote.Status), results.Quote.Err)

		results.BadLaw, stepUsage = v.badlaw.Run(ctx, cit, results.Existence.ClusterID, opts.SkipLayer3)
		usage.Add(stepUsage)
		v.record(runID, opts.OrderID, cit, model.StepBadLaw, string(results.BadLaw.Status), results.BadLaw.Err)

		// Second hard gate: an overruled case never reaches authority
		// scoring.
		if results.BadLaw.Status != model.BadLawOverruled {
			results.Authority, stepUsage = v.authority.Run(ctx, cit, results.Existence)
			usage.Add(stepUsage)
			v.record(runID, opts.OrderID, cit, model.StepAuthority, string(results.Authority.Class), results.Authority.Err)
		}
	}

	compiled := steps.Compile(results, highStakes)
	verdict.Steps = results
	verdict.Status = compiled.Status
	verdict.Confidence = compiled.Confidence
	verdict.Recommendations = compiled.Recommendations
	verdict.Usage = usage
	for _, code := range compiled.FlagCodes {
		verdict.FlagCodes = append(verdict.FlagCodes, string(code))
		if v.flags != nil {
			if _, err := v.flags.Add(code, cit.Normalized, "pipeline"); err != nil {
				v.log.Warn("flag rejected", zap.Error(err))
			}
		}
	}
	v.record(runID, opts.OrderID, cit, model.StepCompile, string(verdict.Status),
		fmt.Sprintf("confidence %.3f", verdict.Confidence))

	outcome := v.dispatcher.Dispatch(verdict, opts.Phase)
	for _, r := range outcome.Results {
		if r.Triggered && !r.DetectionOnly {
			verdict.Recommendations = append(verdict.Recommendations, r.AISEntry)
		}
	}
	if outcome.HoldRequired {
		verdict.FlagCodes = append(verdict.FlagCodes, string(flags.CodeProtocolHold))
	}

	verdict.Duration = verifierNow().Sub(start)

	if !opts.SkipCache && v.verdicts != nil {
		v.verdicts.Put(ctx, key, opts.OrderID, verdict)
	}
	return verdict, nil
}

// record writes one best-effort audit entry; failures never block the run.
func (v *Verifier) record(runID, orderID string, cit model.Citation, step model.Step, outcome, detail string) {
	v.sink.Record(model.AuditRecord{
		ID:        uuid.NewString(),
		RunID:     runID,
		OrderID:   orderID,
		Citation:  cit.Normalized,
		Kind:      "step",
		Name:      string(step),
		Outcome:   outcome,
		Detail:    detail,
		Timestamp: verifierNow().UTC(),
	})
}
