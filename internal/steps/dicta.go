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

const dictaSystemPrompt = `You are a legal research analyst. Classify whether the passage a citation relies on is part of the court's HOLDING, or is DICTA, a CONCURRENCE, or a DISSENT. Respond with a single JSON object: {"classification": "HOLDING"|"DICTA"|"CONCURRENCE"|"DISSENT", "confidence": 0.0-1.0, "explanation": "..."}`

// DictaStep is Step 3: classifies the cited passage's role in the opinion.
// Infrastructure failure defaults to HOLDING/CONTINUE so a broken upstream
// never generates false flags.
type DictaStep struct {
	llm      provider.CompletionService
	registry *resilience.Registry
	log      *zap.Logger
}

// NewDictaStep wires the dicta detector.
func NewDictaStep(llm provider.CompletionService, registry *resilience.Registry, log *zap.Logger) *DictaStep {
	if log == nil {
		log = zap.NewNop()
	}
	return &DictaStep{llm: llm, registry: registry, log: log}
}

type dictaResponse struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Explanation    string  `json:"explanation"`
}

// Run classifies the passage and applies the action policy: HOLDING
// continues; a non-holding classification paired with an
// outcome-determinative proposition flags; anything else is an
// informational note.
func (s *DictaStep) Run(ctx context.Context, cit model.Citation, prop model.Proposition, opinionText string) (model.DictaResult, model.Usage) {
	start := time.Now()

	prompt := fmt.Sprintf("Citation: %s\nProposition the citation supports: %s\n", cit.Normalized, prop.Text)
	if prop.Quote != "" {
		prompt += fmt.Sprintf("Passage relied on: %q\n", prop.Quote)
	}
	if opinionText != "" {
		prompt += "\nOpinion text:\n" + truncate(opinionText, 12000)
	}

	var comp *provider.Completion
	err := s.registry.Call(ctx, "llm", func(ctx context.Context) error {
		var callErr error
		comp, callErr = s.llm.Complete(ctx, provider.CompletionRequest{
			Prompt:       prompt,
			SystemPrompt: dictaSystemPrompt,
			JSONResponse: true,
		})
		return callErr
	})
	var usage model.Usage
	if comp != nil {
		usage = model.Usage{ModelCalls: 1, TokensUsed: comp.TokensUsed, CostUSD: comp.CostUSD}
	}
	if err != nil {
		s.log.Warn("dicta detection failed, defaulting to HOLDING",
			zap.String("citation", cit.Normalized), zap.Error(err))
		return model.DictaResult{
			Classification: model.PassageHolding,
			Action:         model.DictaContinue,
			Err:            err.Error(),
			Duration:       time.Since(start),
		}, usage
	}

	var resp dictaResponse
	if err := decodeModelJSON(comp.Content, &resp); err != nil {
		s.log.Warn("dicta response unparseable, defaulting to HOLDING",
			zap.String("citation", cit.Normalized), zap.Error(err))
		return model.DictaResult{
			Classification: model.PassageHolding,
			Action:         model.DictaContinue,
			Err:            err.Error(),
			Duration:       time.Since(start),
		}, usage
	}

	classification := parseDictaClassification(resp.Classification)
	return model.DictaResult{
		Classification: classification,
		Action:         dictaAction(classification, prop.Type),
		Confidence:     confidence.Normalize(resp.Confidence),
		Explanation:    resp.Explanation,
		Duration:       time.Since(start),
	}, usage
}

func dictaAction(c model.DictaClassification, propType model.PropositionType) model.DictaAction {
	if c == model.PassageHolding {
		return model.DictaContinue
	}
	if propType.IsOutcomeDeterminative() {
		return model.DictaFlag
	}
	return model.DictaNote
}

func parseDictaClassification(s string) model.DictaClassification {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DICTA":
		return model.PassageDicta
	case "CONCURRENCE":
		return model.PassageConcurrence
	case "DISSENT":
		return model.PassageDissent
	default:
		return model.PassageHolding
	}
}
