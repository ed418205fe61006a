package protocol

import (
	"errors"
	"testing"
	"time"

	"github.com/citeguard/citeguard/internal/flags"
	"github.com/citeguard/citeguard/internal/model"
)

func cleanVerdict() *model.VerificationVerdict {
	return &model.VerificationVerdict{
		Citation: model.Citation{Normalized: "Bell Atlantic Corp. v. Twombly, 550 U.S. 544 (2007)"},
		Status:   model.VerdictVerified,
		Confidence: 0.95,
		Steps: model.StepResults{
			Existence: model.ExistenceResult{Status: model.ExistenceVerified, Confidence: 1.0},
			Holding:   model.HoldingResult{Status: model.HoldingVerified, Confidence: 0.95},
			Dicta:     model.DictaResult{Classification: model.PassageHolding, Action: model.DictaContinue},
			Quote:     model.QuoteResult{Status: model.QuoteNotApplicable},
			BadLaw:    model.BadLawResult{Status: model.BadLawGood, Confidence: 0.95},
			Authority: model.AuthorityResult{Class: model.AuthorityEstablished, Score: 75},
		},
	}
}

func withDispatchClock(t *testing.T) *time.Time {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	orig := dispatchNow
	dispatchNow = func() time.Time { return now }
	t.Cleanup(func() { dispatchNow = orig })
	return &now
}

func TestDispatchManifestIsComplete(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	out := d.Dispatch(cleanVerdict(), model.PhaseVerification)

	if len(out.Manifest) != d.Rules() {
		t.Fatalf("manifest entries = %d, want one per registered rule (%d)", len(out.Manifest), d.Rules())
	}
	var clean, triggered, skipped int
	for _, e := range out.Manifest {
		switch e.Status {
		case model.ProtocolEvaluatedClean:
			clean++
		case model.ProtocolEvaluatedTriggered:
			triggered++
		case model.ProtocolNotEvaluated:
			skipped++
		}
	}
	if clean+triggered+skipped != d.Rules() {
		t.Errorf("manifest statuses %d+%d+%d do not sum to %d", clean, triggered, skipped, d.Rules())
	}
	if triggered != 0 || skipped != 0 {
		t.Errorf("clean verdict: triggered = %d, skipped = %d, want 0/0", triggered, skipped)
	}
	if out.HoldRequired {
		t.Error("clean verdict must not require a hold")
	}
}

func TestDispatchOutsideActivePhaseIsNoOp(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	verdict := cleanVerdict()
	verdict.Steps.Dicta.Classification = model.PassageDissent

	out := d.Dispatch(verdict, model.PhaseDraft)

	if len(out.Results) != 0 {
		t.Errorf("results = %d, want 0 outside active phases", len(out.Results))
	}
	if len(out.Manifest) != d.Rules() {
		t.Fatalf("manifest entries = %d, want a full manifest even for a no-op dispatch", len(out.Manifest))
	}
	for _, e := range out.Manifest {
		if e.Status != model.ProtocolNotEvaluated {
			t.Errorf("rule %d status = %s, want NOT_EVALUATED", e.Number, e.Status)
		}
	}
	if out.HoldRequired {
		t.Error("no-op dispatch must not require a hold")
	}
}

func TestDispatchDissentTriggersHoldAndFlags(t *testing.T) {
	manager := flags.NewManager()
	d := NewDispatcher(manager, nil, nil)

	verdict := cleanVerdict()
	verdict.Steps.Dicta.Classification = model.PassageDissent

	out := d.Dispatch(verdict, model.PhaseVerification)

	if !out.HoldRequired {
		t.Fatal("a cited dissent must require a hold")
	}
	ok, reason := manager.CanProceed()
	if ok {
		t.Fatal("unresolved hold flag must block proceeding")
	}
	if reason == "" {
		t.Error("blocked state must carry a reason")
	}
}

func TestDispatchDetectionOnlyAfterHold(t *testing.T) {
	manager := flags.NewManager()
	d := NewDispatcher(manager, nil, nil)
	d.rules = []Rule{
		{1, "always-holds", func(*model.VerificationVerdict) (Finding, error) {
			return Finding{Triggered: true, Severity: model.SeverityCritical, RequiresHold: true, AISEntry: "hold"}, nil
		}},
		{2, "late-finding", func(*model.VerificationVerdict) (Finding, error) {
			return Finding{Triggered: true, Severity: model.SeverityHigh, AISEntry: "late", FlagCode: flags.CodeNegativeTreatment}, nil
		}},
	}

	out := d.Dispatch(cleanVerdict(), model.PhaseVerification)

	if len(out.Results) != 2 {
		t.Fatalf("results = %d; a hold must not short-circuit later rules", len(out.Results))
	}
	if out.Results[0].DetectionOnly {
		t.Error("the rule that triggered the hold runs in active mode")
	}
	if !out.Results[1].DetectionOnly {
		t.Error("rules after a hold must run detection-only")
	}
	if out.Manifest[1].Status != model.ProtocolEvaluatedTriggered {
		t.Errorf("detection-only findings still report EVALUATED_TRIGGERED, got %s", out.Manifest[1].Status)
	}
	for _, f := range manager.Active() {
		if f.Code == flags.CodeNegativeTreatment {
			t.Error("detection-only rule must not raise flags")
		}
	}
}

func TestDispatchProtocolBreaker(t *testing.T) {
	now := withDispatchClock(t)

	calls := 0
	failing := Rule{1, "flaky", func(*model.VerificationVerdict) (Finding, error) {
		calls++
		return Finding{}, errors.New("boom")
	}}
	d := NewDispatcher(nil, nil, nil)
	d.rules = []Rule{failing}

	verdict := cleanVerdict()
	for i := 0; i < 3; i++ {
		out := d.Dispatch(verdict, model.PhaseVerification)
		if out.Manifest[0].Status != model.ProtocolNotEvaluated {
			t.Fatalf("failed evaluation %d must report NOT_EVALUATED", i+1)
		}
	}
	if calls != 3 {
		t.Fatalf("handler calls = %d, want 3 before the breaker trips", calls)
	}

	d.Dispatch(verdict, model.PhaseVerification)
	if calls != 3 {
		t.Fatalf("handler calls = %d; a tripped rule must be skipped", calls)
	}

	*now = now.Add(31 * time.Second)
	d.Dispatch(verdict, model.PhaseVerification)
	if calls != 4 {
		t.Fatalf("handler calls = %d; the cooldown must admit one probe", calls)
	}

	// The probe failed, so the very next dispatch is skipped again.
	d.Dispatch(verdict, model.PhaseVerification)
	if calls != 4 {
		t.Fatalf("handler calls = %d; a failed probe re-trips the breaker", calls)
	}
}

func TestDispatchBreakerResetsOnSuccess(t *testing.T) {
	now := withDispatchClock(t)

	var fail bool
	calls := 0
	d := NewDispatcher(nil, nil, nil)
	d.rules = []Rule{{1, "recovering", func(*model.VerificationVerdict) (Finding, error) {
		calls++
		if fail {
			return Finding{}, errors.New("boom")
		}
		return Finding{}, nil
	}}}

	verdict := cleanVerdict()
	fail = true
	for i := 0; i < 3; i++ {
		d.Dispatch(verdict, model.PhaseVerification)
	}

	*now = now.Add(31 * time.Second)
	fail = false
	out := d.Dispatch(verdict, model.PhaseVerification) // successful probe
	if out.Manifest[0].Status != model.ProtocolEvaluatedClean {
		t.Fatalf("probe status = %s, want EVALUATED_CLEAN", out.Manifest[0].Status)
	}

	before := calls
	d.Dispatch(verdict, model.PhaseVerification)
	if calls != before+1 {
		t.Error("a successful probe must reset the strike counter")
	}
}

func TestDispatchPanicIsIsolated(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	d.rules = []Rule{
		{1, "panics", func(*model.VerificationVerdict) (Finding, error) { panic("bad rule") }},
		{2, "fine", func(*model.VerificationVerdict) (Finding, error) { return Finding{}, nil }},
	}

	out := d.Dispatch(cleanVerdict(), model.PhaseVerification)

	if out.Manifest[0].Status != model.ProtocolNotEvaluated {
		t.Errorf("panicking rule status = %s, want NOT_EVALUATED", out.Manifest[0].Status)
	}
	if out.Manifest[1].Status != model.ProtocolEvaluatedClean {
		t.Errorf("following rule status = %s; a panic must not abort the loop", out.Manifest[1].Status)
	}
}

func TestRuleDetectors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.VerificationVerdict)
		rule   string
		hold   bool
	}{
		{
			name:   "overruled authority holds",
			mutate: func(v *model.VerificationVerdict) { v.Steps.BadLaw.Status = model.BadLawOverruled },
			rule:   "overruled-authority",
			hold:   true,
		},
		{
			name: "en banc supersession holds",
			mutate: func(v *model.VerificationVerdict) {
				v.Steps.BadLaw.OverruledBy = "Smith v. Jones (en banc)"
			},
			rule: "en-banc-supersession",
			hold: true,
		},
		{
			name: "fabricated quote holds",
			mutate: func(v *model.VerificationVerdict) {
				v.Proposition.Quote = "some quote"
				v.Steps.Quote.Status = model.QuoteNotFound
			},
			rule: "quote-integrity",
			hold: true,
		},
		{
			name: "citation mismatch holds",
			mutate: func(v *model.VerificationVerdict) {
				v.Citation.Components = &model.CitationComponents{CaseName: "Miranda v. Arizona"}
				v.Steps.Existence.CaseName = "Gideon v. Wainwright"
			},
			rule: "citation-mismatch",
			hold: true,
		},
		{
			name:   "blocked verdict escalates",
			mutate: func(v *model.VerificationVerdict) { v.Status = model.VerdictBlocked },
			rule:   "blocked-escalation",
			hold:   true,
		},
		{
			name: "negative treatment reviews without hold",
			mutate: func(v *model.VerificationVerdict) {
				v.Steps.BadLaw.Status = model.BadLawNegativeTreatment
			},
			rule: "negative-treatment",
			hold: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(nil, nil, nil)
			verdict := cleanVerdict()
			tt.mutate(verdict)

			out := d.Dispatch(verdict, model.PhaseVerification)

			var fired *model.ProtocolResult
			for i := range out.Results {
				if out.Results[i].Name == tt.rule && out.Results[i].Triggered {
					fired = &out.Results[i]
				}
			}
			if fired == nil {
				t.Fatalf("rule %q did not trigger", tt.rule)
			}
			if fired.RequiresHold != tt.hold {
				t.Errorf("rule %q RequiresHold = %v, want %v", tt.rule, fired.RequiresHold, tt.hold)
			}
		})
	}
}

func TestCaseNamesCompatible(t *testing.T) {
	tests := []struct {
		drafted, located string
		want             bool
	}{
		{"Twombly", "Bell Atlantic Corp. v. Twombly", true},
		{"Bell Atl. Corp. v. Twombly", "Bell Atlantic Corporation v. Twombly", true},
		{"Miranda v. Arizona", "Gideon v. Wainwright", false},
		{"", "Anything", true},
	}
	for _, tt := range tests {
		if got := caseNamesCompatible(tt.drafted, tt.located); got != tt.want {
			t.Errorf("caseNamesCompatible(%q, %q) = %v, want %v", tt.drafted, tt.located, got, tt.want)
		}
	}
}
