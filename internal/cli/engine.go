package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/citeguard/citeguard/internal/audit"
	"github.com/citeguard/citeguard/internal/cache"
	"github.com/citeguard/citeguard/internal/flags"
	"github.com/citeguard/citeguard/internal/model"
	"github.com/citeguard/citeguard/internal/pipeline"
	"github.com/citeguard/citeguard/internal/protocol"
	"github.com/citeguard/citeguard/internal/provider"
	"github.com/citeguard/citeguard/internal/resilience"
	"github.com/citeguard/citeguard/internal/steps"
	"github.com/citeguard/citeguard/internal/store"
)

// buildVerifier assembles the full engine from configuration. The returned
// cleanup closes the durable store and flushes the audit sink.
func buildVerifier(cfg *model.Config, log *zap.Logger) (*pipeline.Verifier, func(), error) {
	legal := provider.NewCourtListenerClient(cfg.Legal)

	if cfg.LLM.APIKey == "" {
		return nil, nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	llm, err := provider.NewOpenAIClient(cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("completion provider: %w", err)
	}

	registry := resilience.NewRegistry(retryFromConfig(cfg.Retry), circuitFromConfig(cfg.Circuit))

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var durable cache.Durable
	if !cfg.Cache.Disabled {
		dataDir := cfg.Store.Path
		if dataDir == "" {
			if home, err := os.UserHomeDir(); err == nil {
				dataDir = filepath.Join(home, ".citeguard", "data")
			}
		}
		if dataDir != "" {
			st, err := store.Open(dataDir)
			if err != nil {
				// The durable tier is an optimization; run memory-only.
				log.Warn("verified index unavailable, using memory cache only", zap.Error(err))
			} else {
				durable = st
				cleanups = append(cleanups, func() { _ = st.Close() })
			}
		}
	}
	verdicts := cache.NewVerdictCache(cfg.Cache, durable)

	var sink audit.Sink = audit.NopSink{}
	auditPath := cfg.Audit.Path
	if auditPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			auditPath = filepath.Join(home, ".citeguard", "audit.jsonl")
		}
	}
	if auditPath != "" {
		fileSink, err := audit.NewFileSink(auditPath, cfg.Audit.QueueSize, log)
		if err != nil {
			log.Warn("audit sink unavailable", zap.Error(err))
		} else {
			sink = fileSink
			cleanups = append(cleanups, fileSink.Close)
		}
	}

	manager := flags.NewManager()

	verifier := pipeline.NewVerifier(pipeline.Deps{
		Existence:  steps.NewExistenceStep(legal, legal, registry, cache.NewExistenceCache(), log),
		Holding:    steps.NewHoldingStep(llm, registry, cfg.Holding, log),
		Dicta:      steps.NewDictaStep(llm, registry, log),
		Quote:      steps.NewQuoteStep(),
		BadLaw:     steps.NewBadLawStep(legal, steps.NewStaticOverruledIndex(), llm, registry, cfg.LLM.SkipLayer3, log),
		Authority:  steps.NewAuthorityStep(legal, registry, log),
		Dispatcher: protocol.NewDispatcher(manager, sink, log),
		Flags:      manager,
		Verdicts:   verdicts,
		Registry:   registry,
		Sink:       sink,
		HoldingCfg: cfg.Holding,
		Log:        log,
	})
	return verifier, cleanup, nil
}

func retryFromConfig(cfg model.RetryConfig) resilience.RetryConfig {
	out := resilience.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		out.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelayMS > 0 {
		out.BaseDelay = time.Duration(cfg.BaseDelayMS) * time.Millisecond
	}
	if cfg.MaxDelayMS > 0 {
		out.MaxDelay = time.Duration(cfg.MaxDelayMS) * time.Millisecond
	}
	if cfg.Jitter > 0 {
		out.Jitter = cfg.Jitter
	}
	return out
}

func circuitFromConfig(cfg model.CircuitConfig) resilience.CircuitConfig {
	out := resilience.DefaultCircuitConfig()
	if cfg.FailureThreshold > 0 {
		out.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.WindowSeconds > 0 {
		out.Window = time.Duration(cfg.WindowSeconds) * time.Second
	}
	if cfg.OpenSeconds > 0 {
		out.OpenFor = time.Duration(cfg.OpenSeconds) * time.Second
	}
	return out
}
