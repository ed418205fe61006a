package protocol

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/citeguard/citeguard/internal/audit"
	"github.com/citeguard/citeguard/internal/flags"
	"github.com/citeguard/citeguard/internal/model"
)

// Per-protocol breaker policy: three consecutive handler failures skip the
// rule, a cooldown later one probe evaluation is allowed, and any success
// resets the counter.
const (
	protocolStrikeLimit = 3
	protocolCooldown    = 30 * time.Second
)

// dispatchNow is injectable for tests.
var dispatchNow = time.Now

// activePhases are the lifecycle phases protocols evaluate in. Outside
// them dispatch is a no-op that still returns a complete manifest.
var activePhases = map[model.VerificationPhase]bool{
	model.PhaseVerification: true,
	model.PhaseFinalReview:  true,
}

// Outcome is one dispatch run over the full rule set.
type Outcome struct {
	Results      []model.ProtocolResult        `json:"results"`
	Manifest     []model.ProtocolManifestEntry `json:"manifest"`
	HoldRequired bool                          `json:"hold_required"`
}

type ruleState struct {
	strikes   int
	skippedAt time.Time
}

// Dispatcher runs every registered rule against a verdict in priority
// order. Rule failure state is process-local and shared across dispatches,
// matching the service-level breaker registry.
type Dispatcher struct {
	rules []Rule
	flags *flags.Manager
	sink  audit.Sink
	log   *zap.Logger

	mu     sync.Mutex
	states map[int]*ruleState
}

// NewDispatcher wires the dispatcher. flagManager may be nil when the
// caller only wants detection; sink may be nil to skip audit records.
func NewDispatcher(flagManager *flags.Manager, sink audit.Sink, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Dispatcher{
		rules:  Registry(),
		flags:  flagManager,
		sink:   sink,
		log:    log,
		states: make(map[int]*ruleState),
	}
}

// Rules returns the registered rule count.
func (d *Dispatcher) Rules() int { return len(d.rules) }

// Dispatch evaluates every rule against the verdict. No rule short-circuits
// another: all eligible rules run and the manifest carries one entry per
// registered rule. Once any rule requires a hold, the remaining rules run
// in detection-only mode: they still evaluate and report, but raise no
// flags.
func (d *Dispatcher) Dispatch(verdict *model.VerificationVerdict, phase model.VerificationPhase) Outcome {
	out := Outcome{
		Results:  make([]model.ProtocolResult, 0, len(d.rules)),
		Manifest: make([]model.ProtocolManifestEntry, 0, len(d.rules)),
	}

	if !activePhases[phase] {
		for _, rule := range d.rules {
			out.Manifest = append(out.Manifest, model.ProtocolManifestEntry{
				Number: rule.Number,
				Name:   rule.Name,
				Status: model.ProtocolNotEvaluated,
			})
		}
		return out
	}

	runID := uuid.NewString()
	for _, rule := range d.rules {
		if !d.allow(rule.Number) {
			out.Manifest = append(out.Manifest, model.ProtocolManifestEntry{
				Number: rule.Number,
				Name:   rule.Name,
				Status: model.ProtocolNotEvaluated,
			})
			continue
		}

		finding, err := d.evaluate(rule, verdict)
		if err != nil {
			d.recordFailure(rule.Number)
			d.log.Warn("protocol handler failed",
				zap.Int("protocol", rule.Number),
				zap.String("name", rule.Name),
				zap.Error(err))
			out.Manifest = append(out.Manifest, model.ProtocolManifestEntry{
				Number: rule.Number,
				Name:   rule.Name,
				Status: model.ProtocolNotEvaluated,
			})
			continue
		}
		d.recordSuccess(rule.Number)

		result := model.ProtocolResult{
			Number:        rule.Number,
			Name:          rule.Name,
			Triggered:     finding.Triggered,
			Severity:      finding.Severity,
			RequiresHold:  finding.RequiresHold,
			AISEntry:      finding.AISEntry,
			DetectionOnly: out.HoldRequired,
		}
		out.Results = append(out.Results, result)

		status := model.ProtocolEvaluatedClean
		if finding.Triggered {
			status = model.ProtocolEvaluatedTriggered
			d.sink.Record(model.AuditRecord{
				ID:        uuid.NewString(),
				RunID:     runID,
				OrderID:   verdict.OrderID,
				Citation:  verdict.Citation.Normalized,
				Kind:      "protocol",
				Name:      rule.Name,
				Outcome:   string(status),
				Detail:    finding.AISEntry,
				Timestamp: dispatchNow(),
			})

			// Side effects only in active mode; detection-only findings
			// are reported but take no action.
			if !result.DetectionOnly {
				d.raiseFlags(finding, verdict)
			}
			if finding.RequiresHold {
				out.HoldRequired = true
			}
		}
		out.Manifest = append(out.Manifest, model.ProtocolManifestEntry{
			Number: rule.Number,
			Name:   rule.Name,
			Status: status,
		})
	}
	return out
}

// evaluate isolates handler panics as errors so one broken rule never
// aborts the dispatch loop.
func (d *Dispatcher) evaluate(rule Rule, verdict *model.VerificationVerdict) (finding Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("protocol %d panicked: %v", rule.Number, r)
		}
	}()
	return rule.Handler(verdict)
}

func (d *Dispatcher) raiseFlags(finding Finding, verdict *model.VerificationVerdict) {
	if d.flags == nil {
		return
	}
	if finding.FlagCode != "" {
		if _, err := d.flags.Add(finding.FlagCode, verdict.Citation.Normalized, "protocol"); err != nil {
			d.log.Warn("protocol flag rejected", zap.Error(err))
		}
	}
	if finding.RequiresHold {
		if _, err := d.flags.Add(flags.CodeProtocolHold, verdict.Citation.Normalized, "protocol"); err != nil {
			d.log.Warn("protocol hold flag rejected", zap.Error(err))
		}
	}
}

// allow reports whether a rule may evaluate given its strike state.
func (d *Dispatcher) allow(number int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.states[number]
	if !ok || st.strikes < protocolStrikeLimit {
		return true
	}
	// Tripped: wait out the cooldown, then admit one probe evaluation.
	if dispatchNow().Sub(st.skippedAt) >= protocolCooldown {
		st.skippedAt = dispatchNow()
		return true
	}
	return false
}

func (d *Dispatcher) recordFailure(number int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.states[number]
	if !ok {
		st = &ruleState{}
		d.states[number] = st
	}
	st.strikes++
	if st.strikes >= protocolStrikeLimit {
		st.skippedAt = dispatchNow()
	}
}

func (d *Dispatcher) recordSuccess(number int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.states[number]; ok {
		st.strikes = 0
	}
}
