package steps

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/citeguard/citeguard/internal/cache"
	"github.com/citeguard/citeguard/internal/citation"
	"github.com/citeguard/citeguard/internal/model"
	"github.com/citeguard/citeguard/internal/provider"
	"github.com/citeguard/citeguard/internal/resilience"
)

// ExistenceStep is Step 1: a deterministic existence check against the
// primary legal database, with a docket-record fallback for federal
// citations. This is the pipeline's sole hard gate: NOT_FOUND or ERROR
// terminates the run.
type ExistenceStep struct {
	primary  provider.ExistenceLookup
	docket   provider.DocketLookup
	registry *resilience.Registry
	cache    *cache.ExistenceCache
	log      *zap.Logger
}

// NewExistenceStep wires the existence check.
func NewExistenceStep(primary provider.ExistenceLookup, docket provider.DocketLookup, registry *resilience.Registry, existCache *cache.ExistenceCache, log *zap.Logger) *ExistenceStep {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExistenceStep{
		primary:  primary,
		docket:   docket,
		registry: registry,
		cache:    existCache,
		log:      log,
	}
}

// Run resolves the citation. Confidence is fixed at 1.0: the lookup is
// binary, not probabilistic.
func (s *ExistenceStep) Run(ctx context.Context, cit model.Citation) model.ExistenceResult {
	start := time.Now()

	rec, source, err := s.lookup(ctx, cit)
	if err != nil {
		s.log.Warn("existence lookup failed",
			zap.String("citation", cit.Normalized),
			zap.Error(err))
		return model.ExistenceResult{
			Status:     model.ExistenceError,
			Confidence: 1.0,
			Err:        err.Error(),
			Duration:   time.Since(start),
		}
	}

	if !rec.Found {
		return model.ExistenceResult{
			Status:     model.ExistenceNotFound,
			Confidence: 1.0,
			Duration:   time.Since(start),
		}
	}

	result := model.ExistenceResult{
		Status:     model.ExistenceVerified,
		Confidence: 1.0,
		ClusterID:  rec.ClusterID,
		CaseName:   rec.CaseName,
		Court:      rec.Court,
		DateFiled:  rec.DateFiled,
		URL:        rec.URL,
		Source:     source,
	}
	if rec.Unpublished {
		result.Status = model.ExistenceUnpublished
	}

	// Opinion text is best-effort; later steps degrade without it.
	if rec.OpinionText != "" {
		result.OpinionText = rec.OpinionText
	} else if rec.ClusterID != "" {
		text, err := s.fetchOpinion(ctx, rec.ClusterID)
		if err != nil {
			s.log.Debug("opinion text unavailable",
				zap.String("cluster_id", rec.ClusterID),
				zap.Error(err))
		} else {
			result.OpinionText = text
		}
	}

	result.Duration = time.Since(start)
	return result
}

func (s *ExistenceStep) lookup(ctx context.Context, cit model.Citation) (*provider.ExistenceRecord, string, error) {
	if s.cache != nil {
		if rec, found := s.cache.Get(cit.Normalized); found {
			return rec, "cache", nil
		}
	}

	var rec *provider.ExistenceRecord
	err := s.registry.Call(ctx, "legal-db", func(ctx context.Context) error {
		var callErr error
		rec, callErr = s.primary.Exists(ctx, cit.Normalized)
		return callErr
	})
	if err != nil {
		return nil, "", err
	}

	source := "primary"
	if !rec.Found && s.docket != nil && citation.IsFederal(cit) {
		var docketRec *provider.ExistenceRecord
		docketErr := s.registry.Call(ctx, "docket-db", func(ctx context.Context) error {
			var callErr error
			docketRec, callErr = s.docket.FindDocket(ctx, cit.Normalized)
			return callErr
		})
		// Fallback failure keeps the primary miss; it does not become
		// a step error.
		if docketErr == nil && docketRec.Found {
			rec = docketRec
			source = "docket"
		}
	}

	if s.cache != nil {
		s.cache.Put(cit.Normalized, rec)
	}
	return rec, source, nil
}

func (s *ExistenceStep) fetchOpinion(ctx context.Context, clusterID string) (string, error) {
	var text string
	err := s.registry.Call(ctx, "legal-db", func(ctx context.Context) error {
		var callErr error
		text, callErr = s.primary.OpinionText(ctx, clusterID)
		return callErr
	})
	return text, err
}
