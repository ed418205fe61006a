package flags

import (
	"errors"
	"strings"
	"testing"

	"github.com/citeguard/citeguard/internal/model"
)

func TestManager_AddUnknownCodeFails(t *testing.T) {
	m := NewManager()

	_, err := m.Add(model.FlagCode("NOT_A_REAL_CODE"), "", "test")
	if err == nil {
		t.Fatal("expected error for unknown flag code")
	}
	var unknownErr *ErrUnknownCode
	if !errors.As(err, &unknownErr) {
		t.Errorf("err = %T, want *ErrUnknownCode", err)
	}
}

func TestManager_SameCodeDifferentCitationsCoexist(t *testing.T) {
	m := NewManager()

	if _, err := m.Add(CodeQuoteNotFound, "123 F.3d 456", "quote"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Add(CodeQuoteNotFound, "456 U.S. 789", "quote"); err != nil {
		t.Fatal(err)
	}

	if got := len(m.Active()); got != 2 {
		t.Errorf("active flags = %d, want 2", got)
	}
}

func TestManager_AddIsIdempotentPerKey(t *testing.T) {
	m := NewManager()

	f1, _ := m.Add(CodeDictaNote, "123 F.3d 456", "dicta")
	f2, _ := m.Add(CodeDictaNote, "123 F.3d 456", "dicta")
	if f1 != f2 {
		t.Error("re-adding the same (code, citation) should return the existing flag")
	}
	if got := len(m.Active()); got != 1 {
		t.Errorf("active flags = %d, want 1", got)
	}
}

func TestManager_ResolveKeepsFlag(t *testing.T) {
	m := NewManager()

	_, _ = m.Add(CodeCaseOverruled, "123 F.3d 456", "bad_law")
	if err := m.Resolve(CodeCaseOverruled, "123 F.3d 456", "attorney@firm.com", "verified manually against official reporter"); err != nil {
		t.Fatal(err)
	}

	blocking := m.ByCategory(model.FlagBlocking)
	if len(blocking) != 1 {
		t.Fatalf("flags in BLOCKING = %d, want 1 (resolution must not delete)", len(blocking))
	}
	f := blocking[0]
	if !f.Resolved || f.ResolvedBy != "attorney@firm.com" || f.ResolvedAt == nil {
		t.Errorf("flag not properly resolved: %+v", f)
	}
}

func TestManager_CanProceed(t *testing.T) {
	m := NewManager()

	if ok, _ := m.CanProceed(); !ok {
		t.Fatal("empty manager should allow proceeding")
	}

	_, _ = m.Add(CodeUnpublishedOpinion, "123 F.3d 456", "existence")
	if ok, _ := m.CanProceed(); !ok {
		t.Error("info flags alone should not block")
	}

	_, _ = m.Add(CodeCitationNotFound, "999 F.3d 111", "existence")
	ok, reason := m.CanProceed()
	if ok {
		t.Fatal("unresolved blocking flag should prevent proceeding")
	}
	if !strings.Contains(reason, "CITATION_NOT_FOUND") {
		t.Errorf("reason should name the blocking code, got %q", reason)
	}

	if err := m.Resolve(CodeCitationNotFound, "999 F.3d 111", "attorney", "located in official reporter"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := m.CanProceed(); !ok {
		t.Error("resolving the blocking flag should allow proceeding")
	}
}

func TestManager_RemoveDeletes(t *testing.T) {
	m := NewManager()

	_, _ = m.Add(CodeBadLawCaution, "123 F.3d 456", "bad_law")
	if !m.Remove(CodeBadLawCaution, "123 F.3d 456") {
		t.Fatal("remove should report success for an existing flag")
	}
	if got := m.Summarize().Total; got != 0 {
		t.Errorf("total after removal = %d, want 0", got)
	}
	if m.Remove(CodeBadLawCaution, "123 F.3d 456") {
		t.Error("removing a missing flag should report false")
	}
}

func TestManager_Summarize(t *testing.T) {
	m := NewManager()

	_, _ = m.Add(CodeCitationNotFound, "a", "existence")
	_, _ = m.Add(CodeQuotePartialMatch, "a", "quote")
	_, _ = m.Add(CodeDictaNote, "a", "dicta")
	_ = m.Resolve(CodeDictaNote, "a", "attorney", "reviewed")

	s := m.Summarize()
	if s.Total != 3 || s.Unresolved != 2 || s.Blocking != 1 || s.Review != 1 || s.Info != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
}
