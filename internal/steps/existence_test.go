package steps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/citeguard/citeguard/internal/cache"
	"github.com/citeguard/citeguard/internal/model"
	"github.com/citeguard/citeguard/internal/provider"
)

func TestExistenceVerified(t *testing.T) {
	primary := &stubExistence{rec: &provider.ExistenceRecord{
		Found:     true,
		ClusterID: "118144",
		CaseName:  "Bell Atlantic Corp. v. Twombly",
		Court:     "Supreme Court of the United States",
		DateFiled: time.Date(2007, 5, 21, 0, 0, 0, 0, time.UTC),
	}}
	primary.opinion = "To survive a motion to dismiss, a complaint must state a claim that is plausible on its face."

	step := NewExistenceStep(primary, nil, testRegistry(), nil, nil)
	res := step.Run(context.Background(), fullCitation(550, "U.S.", 544))

	if res.Status != model.ExistenceVerified {
		t.Fatalf("status = %s, want VERIFIED", res.Status)
	}
	if res.Confidence != 1.0 {
		t.Errorf("confidence = %f, want the fixed 1.0", res.Confidence)
	}
	if res.ClusterID != "118144" {
		t.Errorf("cluster id = %q", res.ClusterID)
	}
	if res.OpinionText == "" {
		t.Error("opinion text should be fetched when available")
	}
	if res.Source != "primary" {
		t.Errorf("source = %q, want primary", res.Source)
	}
}

func TestExistenceUnpublished(t *testing.T) {
	primary := &stubExistence{rec: &provider.ExistenceRecord{Found: true, ClusterID: "1", Unpublished: true}}
	step := NewExistenceStep(primary, nil, testRegistry(), nil, nil)

	res := step.Run(context.Background(), fullCitation(800, "Fed.Appx.", 100))
	if res.Status != model.ExistenceUnpublished {
		t.Fatalf("status = %s, want UNPUBLISHED", res.Status)
	}
}

func TestExistenceNotFoundSkipsDocketForStateCitations(t *testing.T) {
	primary := &stubExistence{rec: &provider.ExistenceRecord{Found: false}}
	docket := &stubDocket{rec: &provider.ExistenceRecord{Found: true}}
	step := NewExistenceStep(primary, docket, testRegistry(), nil, nil)

	res := step.Run(context.Background(), fullCitation(50, "Cal.App.4th", 120))

	if res.Status != model.ExistenceNotFound {
		t.Fatalf("status = %s, want NOT_FOUND", res.Status)
	}
	if docket.calls != 0 {
		t.Errorf("docket calls = %d; the fallback is for federal reporters only", docket.calls)
	}
}

func TestExistenceFederalDocketFallback(t *testing.T) {
	primary := &stubExistence{rec: &provider.ExistenceRecord{Found: false}}
	docket := &stubDocket{rec: &provider.ExistenceRecord{
		Found:    true,
		CaseName: "United States v. Example",
	}}
	step := NewExistenceStep(primary, docket, testRegistry(), nil, nil)

	res := step.Run(context.Background(), fullCitation(999, "F.3d", 1))

	if res.Status != model.ExistenceVerified {
		t.Fatalf("status = %s, want VERIFIED via the docket fallback", res.Status)
	}
	if res.Source != "docket" {
		t.Errorf("source = %q, want docket", res.Source)
	}
	if docket.calls != 1 {
		t.Errorf("docket calls = %d, want 1", docket.calls)
	}
}

func TestExistenceDocketFailureKeepsPrimaryMiss(t *testing.T) {
	primary := &stubExistence{rec: &provider.ExistenceRecord{Found: false}}
	docket := &stubDocket{err: errors.New("docket service down")}
	step := NewExistenceStep(primary, docket, testRegistry(), nil, nil)

	res := step.Run(context.Background(), fullCitation(999, "F.3d", 1))

	if res.Status != model.ExistenceNotFound {
		t.Fatalf("status = %s, want NOT_FOUND (fallback failure is not a step error)", res.Status)
	}
	if res.Err != "" {
		t.Errorf("err = %q, want empty", res.Err)
	}
}

func TestExistenceLookupErrorIsError(t *testing.T) {
	primary := &stubExistence{err: errors.New("service unavailable")}
	step := NewExistenceStep(primary, nil, testRegistry(), nil, nil)

	res := step.Run(context.Background(), fullCitation(550, "U.S.", 544))

	if res.Status != model.ExistenceError {
		t.Fatalf("status = %s, want ERROR", res.Status)
	}
	if res.Err == "" {
		t.Error("step error must carry the cause")
	}
}

func TestExistenceCacheShortCircuitsLookup(t *testing.T) {
	primary := &stubExistence{rec: &provider.ExistenceRecord{Found: true, ClusterID: "7"}}
	existCache := cache.NewExistenceCache()
	step := NewExistenceStep(primary, nil, testRegistry(), existCache, nil)

	cit := fullCitation(550, "U.S.", 544)
	first := step.Run(context.Background(), cit)
	second := step.Run(context.Background(), cit)

	if primary.calls != 1 {
		t.Fatalf("primary lookups = %d, want 1 (second run served from cache)", primary.calls)
	}
	if first.Status != second.Status || first.ClusterID != second.ClusterID {
		t.Error("cached run must reproduce the original result")
	}
	if second.Source != "cache" {
		t.Errorf("source = %q, want cache", second.Source)
	}
}
