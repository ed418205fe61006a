package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/citeguard/citeguard/internal/model"
)

func holdingTestStep(llm *scriptedLLM) *HoldingStep {
	return NewHoldingStep(llm, testRegistry(), model.HoldingConfig{}, nil)
}

func TestHoldingHighConfidenceSkipsStageTwo(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"status": "verified", "confidence": 0.96, "reasoning": "squarely on point"}`,
	}}
	step := holdingTestStep(llm)

	res, usage := step.Run(context.Background(), fullCitation(550, "U.S.", 544), model.Proposition{Text: "p"}, "opinion", false, false)

	if res.Status != model.HoldingVerified {
		t.Fatalf("status = %s, want VERIFIED", res.Status)
	}
	if len(llm.calls) != 1 {
		t.Fatalf("model calls = %d, want 1 (no adversarial stage above the gray band)", len(llm.calls))
	}
	if res.Stage2 != nil {
		t.Error("Stage2 should be nil when only stage 1 ran")
	}
	if usage.ModelCalls != 1 {
		t.Errorf("usage.ModelCalls = %d, want 1", usage.ModelCalls)
	}
}

func TestHoldingGrayBandTriggersStageTwo(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"status": "verified", "confidence": 0.82, "reasoning": "likely supported"}`,
		`{"status": "verified", "confidence": 0.88, "reasoning": "no distinguishing facts found"}`,
	}}
	step := holdingTestStep(llm)

	res, _ := step.Run(context.Background(), fullCitation(550, "U.S.", 544), model.Proposition{Text: "p"}, "opinion", false, false)

	if len(llm.calls) != 2 {
		t.Fatalf("model calls = %d, want 2 (gray-band confidence forces the adversarial stage)", len(llm.calls))
	}
	if !llm.calls[1].Adversarial {
		t.Error("second call must be marked adversarial")
	}
	if res.Status != model.HoldingVerified {
		t.Fatalf("status = %s, want VERIFIED when both stages agree", res.Status)
	}
	if !closeTo(res.Confidence, 0.85) {
		t.Errorf("confidence = %f, want the stage average 0.85", res.Confidence)
	}
	if res.Tiebroken {
		t.Error("agreement must not be marked tiebroken")
	}
}

func TestHoldingHighStakesForcesStageTwo(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"status": "verified", "confidence": 0.97, "reasoning": "on point"}`,
		`{"status": "verified", "confidence": 0.93, "reasoning": "holds up"}`,
	}}
	step := holdingTestStep(llm)

	res, _ := step.Run(context.Background(), fullCitation(550, "U.S.", 544), model.Proposition{Text: "p"}, "opinion", true, false)

	if len(llm.calls) != 2 {
		t.Fatalf("model calls = %d, want 2 regardless of stage-1 confidence", len(llm.calls))
	}
	if !res.HighStakes {
		t.Error("result must carry the high-stakes marker")
	}
}

func TestHoldingDisagreementGoesToTiebreaker(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"status": "verified", "confidence": 0.80, "reasoning": "supports it"}`,
		`{"status": "rejected", "confidence": 0.85, "reasoning": "holding is narrower"}`,
		`{"winner": "second", "reasoning": "the narrower reading is correct"}`,
	}}
	step := holdingTestStep(llm)

	res, usage := step.Run(context.Background(), fullCitation(550, "U.S.", 544), model.Proposition{Text: "p"}, "opinion", false, false)

	if len(llm.calls) != 3 {
		t.Fatalf("model calls = %d, want 3 (stage 1, stage 2, tiebreaker)", len(llm.calls))
	}
	if !res.Tiebroken {
		t.Fatal("disagreement must be marked tiebroken")
	}
	if res.Status != model.HoldingRejected {
		t.Fatalf("status = %s, want the tiebreak winner's REJECTED", res.Status)
	}
	if !closeTo(res.Confidence, 0.85) {
		t.Errorf("confidence = %f, want the winner's 0.85", res.Confidence)
	}
	if usage.ModelCalls != 3 {
		t.Errorf("usage.ModelCalls = %d, want 3", usage.ModelCalls)
	}
}

func TestHoldingStageOneFailure(t *testing.T) {
	llm := &scriptedLLM{errs: []error{errors.New("model unavailable")}}
	step := holdingTestStep(llm)

	res, _ := step.Run(context.Background(), fullCitation(550, "U.S.", 544), model.Proposition{Text: "p"}, "opinion", false, false)

	if res.Status != model.HoldingUncertain {
		t.Fatalf("status = %s, want UNCERTAIN", res.Status)
	}
	if res.Confidence != 0 {
		t.Errorf("confidence = %f, want 0", res.Confidence)
	}
	if res.Err == "" {
		t.Error("failure must be recorded on the result")
	}
}

func TestHoldingStageTwoFailureDegrades(t *testing.T) {
	llm := &scriptedLLM{
		responses: []string{`{"status": "verified", "confidence": 0.80, "reasoning": "supports it"}`},
		errs:      []error{nil, errors.New("model unavailable")},
	}
	step := holdingTestStep(llm)

	res, _ := step.Run(context.Background(), fullCitation(550, "U.S.", 544), model.Proposition{Text: "p"}, "opinion", false, false)

	if res.Status != model.HoldingUncertain {
		t.Fatalf("status = %s, want UNCERTAIN when the adversarial stage is lost", res.Status)
	}
	if !closeTo(res.Confidence, 0.80*uncertainPenalty) {
		t.Errorf("confidence = %f, want stage-1 confidence discounted by %.1f", res.Confidence, uncertainPenalty)
	}
	if res.Stage1 == nil {
		t.Error("stage-1 finding must be preserved")
	}
}

func TestHoldingPercentScaleNormalized(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"status": "verified", "confidence": 96, "reasoning": "on point"}`,
	}}
	step := holdingTestStep(llm)

	res, _ := step.Run(context.Background(), fullCitation(550, "U.S.", 544), model.Proposition{Text: "p"}, "opinion", false, false)

	if len(llm.calls) != 1 {
		t.Fatalf("model calls = %d; a 0-100 scale confidence must normalize above the gray band", len(llm.calls))
	}
	if !closeTo(res.Confidence, 0.96) {
		t.Errorf("confidence = %f, want 0.96", res.Confidence)
	}
}
