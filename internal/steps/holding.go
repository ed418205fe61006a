package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/citeguard/citeguard/internal/confidence"
	"github.com/citeguard/citeguard/internal/model"
	"github.com/citeguard/citeguard/internal/provider"
	"github.com/citeguard/citeguard/internal/resilience"
)

// uncertainPenalty discounts the weaker stage's confidence when the
// adversarial stages cannot be reconciled.
const uncertainPenalty = 0.7

const holdingSystemPrompt = `You are a legal research analyst verifying whether a case's HOLDING (not dicta) supports a stated proposition. Respond with a single JSON object: {"status": "verified"|"rejected"|"uncertain", "confidence": 0.0-1.0, "supporting_quote": "...", "reasoning": "..."}`

const adversarialSystemPrompt = `You are an opposing counsel's legal analyst. Your job is to find every reason the case's holding does NOT support the stated proposition: distinguishable facts, narrower holdings, contrary language, procedural posture. Respond with a single JSON object: {"status": "verified"|"rejected"|"uncertain", "confidence": 0.0-1.0, "supporting_quote": "...", "reasoning": "..."}`

const tiebreakerSystemPrompt = `Two legal analysts disagree about whether a case's holding supports a proposition. Review both analyses and decide which is correct. Respond with a single JSON object: {"winner": "first"|"second", "reasoning": "..."}`

// HoldingStep is Step 2: two-stage adversarial holding verification.
// Stage 1 classifies support; Stage 2 runs an adversarial model when
// Stage 1 lands in the gray band, falls below the low threshold, or the
// citation is HIGH_STAKES. Disagreement goes to a tiebreaker.
type HoldingStep struct {
	llm      provider.CompletionService
	registry *resilience.Registry
	cfg      model.HoldingConfig
	log      *zap.Logger
}

// NewHoldingStep wires the holding verifier.
func NewHoldingStep(llm provider.CompletionService, registry *resilience.Registry, cfg model.HoldingConfig, log *zap.Logger) *HoldingStep {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.GrayLow == 0 {
		cfg.GrayLow = 0.70
	}
	if cfg.GrayHigh == 0 {
		cfg.GrayHigh = 0.90
	}
	return &HoldingStep{llm: llm, registry: registry, cfg: cfg, log: log}
}

type stageResponse struct {
	Status          string  `json:"status"`
	Confidence      float64 `json:"confidence"`
	SupportingQuote string  `json:"supporting_quote"`
	Reasoning       string  `json:"reasoning"`
}

type tiebreakerResponse struct {
	Winner    string `json:"winner"`
	Reasoning string `json:"reasoning"`
}

// Run verifies the holding. forceStage2 comes from caller options;
// highStakes from the HIGH_STAKES rules.
func (s *HoldingStep) Run(ctx context.Context, cit model.Citation, prop model.Proposition, opinionText string, highStakes, forceStage2 bool) (model.HoldingResult, model.Usage) {
	start := time.Now()
	var usage model.Usage

	stage1, stage1Usage, err := s.runStage(ctx, cit, prop, opinionText, false)
	usage.Add(stage1Usage)
	if err != nil {
		s.log.Warn("holding stage 1 failed", zap.String("citation", cit.Normalized), zap.Error(err))
		return model.HoldingResult{
			Status:     model.HoldingUncertain,
			Confidence: 0,
			HighStakes: highStakes,
			Err:        err.Error(),
			Duration:   time.Since(start),
		}, usage
	}

	needStage2 := forceStage2 || highStakes || stage1.Confidence < s.cfg.GrayHigh
	if !needStage2 {
		return model.HoldingResult{
			Status:     stage1.Status,
			Confidence: stage1.Confidence,
			Stage1:     stage1,
			HighStakes: highStakes,
			Duration:   time.Since(start),
		}, usage
	}

	stage2, stage2Usage, err := s.runStage(ctx, cit, prop, opinionText, true)
	usage.Add(stage2Usage)
	if err != nil {
		// Stage 2 is extra scrutiny; losing it degrades to an uncertain
		// result rather than discarding Stage 1.
		s.log.Warn("holding stage 2 failed", zap.String("citation", cit.Normalized), zap.Error(err))
		return model.HoldingResult{
			Status:     model.HoldingUncertain,
			Confidence: stage1.Confidence * uncertainPenalty,
			Stage1:     stage1,
			HighStakes: highStakes,
			Err:        err.Error(),
			Duration:   time.Since(start),
		}, usage
	}

	result := model.HoldingResult{
		Stage1:     stage1,
		Stage2:     stage2,
		HighStakes: highStakes,
	}

	if stage1.Status == stage2.Status {
		result.Status = stage1.Status
		result.Confidence = (stage1.Confidence + stage2.Confidence) / 2
		result.Duration = time.Since(start)
		return result, usage
	}

	winner, tbUsage, err := s.tiebreak(ctx, cit, prop, stage1, stage2)
	usage.Add(tbUsage)
	result.Tiebroken = true
	if err != nil {
		s.log.Warn("holding tiebreaker failed", zap.String("citation", cit.Normalized), zap.Error(err))
		result.Status = model.HoldingUncertain
		result.Confidence = minFloat(stage1.Confidence, stage2.Confidence) * uncertainPenalty
		result.Err = err.Error()
	} else {
		result.Status = winner.Status
		result.Confidence = winner.Confidence
	}
	result.Duration = time.Since(start)
	return result, usage
}

func (s *HoldingStep) runStage(ctx context.Context, cit model.Citation, prop model.Proposition, opinionText string, adversarial bool) (*model.StageFinding, model.Usage, error) {
	system := holdingSystemPrompt
	if adversarial {
		system = adversarialSystemPrompt
	}

	prompt := fmt.Sprintf("Citation: %s\nProposition: %s\n", cit.Normalized, prop.Text)
	if prop.Quote != "" {
		prompt += fmt.Sprintf("Quoted passage: %q\n", prop.Quote)
	}
	if opinionText != "" {
		prompt += "\nOpinion text:\n" + truncate(opinionText, 12000)
	} else {
		prompt += "\nNo opinion text is available; rely on your knowledge of the case, and lower your confidence accordingly."
	}

	var comp *provider.Completion
	err := s.registry.Call(ctx, "llm", func(ctx context.Context) error {
		var callErr error
		comp, callErr = s.llm.Complete(ctx, provider.CompletionRequest{
			Prompt:       prompt,
			SystemPrompt: system,
			JSONResponse: true,
			Adversarial:  adversarial,
		})
		return callErr
	})
	usage := model.Usage{}
	if comp != nil {
		usage = model.Usage{ModelCalls: 1, TokensUsed: comp.TokensUsed, CostUSD: comp.CostUSD}
	}
	if err != nil {
		return nil, usage, err
	}

	var resp stageResponse
	if err := decodeModelJSON(comp.Content, &resp); err != nil {
		return nil, usage, err
	}

	finding := &model.StageFinding{
		Status:          parseHoldingStatus(resp.Status),
		Confidence:      confidence.Normalize(resp.Confidence),
		SupportingQuote: resp.SupportingQuote,
		Reasoning:       resp.Reasoning,
	}
	return finding, usage, nil
}

func (s *HoldingStep) tiebreak(ctx context.Context, cit model.Citation, prop model.Proposition, stage1, stage2 *model.StageFinding) (*model.StageFinding, model.Usage, error) {
	prompt := fmt.Sprintf(`Citation: %s
Proposition: %s

First analysis (%s, confidence %.2f): %s

Second analysis (%s, confidence %.2f): %s`,
		cit.Normalized, prop.Text,
		stage1.Status, stage1.Confidence, stage1.Reasoning,
		stage2.Status, stage2.Confidence, stage2.Reasoning)

	var comp *provider.Completion
	err := s.registry.Call(ctx, "llm", func(ctx context.Context) error {
		var callErr error
		comp, callErr = s.llm.Complete(ctx, provider.CompletionRequest{
			Prompt:       prompt,
			SystemPrompt: tiebreakerSystemPrompt,
			JSONResponse: true,
		})
		return callErr
	})
	usage := model.Usage{}
	if comp != nil {
		usage = model.Usage{ModelCalls: 1, TokensUsed: comp.TokensUsed, CostUSD: comp.CostUSD}
	}
	if err != nil {
		return nil, usage, err
	}

	var resp tiebreakerResponse
	if err := decodeModelJSON(comp.Content, &resp); err != nil {
		return nil, usage, err
	}

	switch strings.ToLower(resp.Winner) {
	case "first":
		return stage1, usage, nil
	case "second":
		return stage2, usage, nil
	default:
		return nil, usage, fmt.Errorf("tiebreaker returned unknown winner %q", resp.Winner)
	}
}

func parseHoldingStatus(s string) model.HoldingStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verified":
		return model.HoldingVerified
	case "rejected":
		return model.HoldingRejected
	default:
		return model.HoldingUncertain
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[truncated]"
}
