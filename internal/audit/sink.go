// Package audit provides the append-only audit trail. Writes are
// best-effort by design: a failure to log is recorded locally and never
// blocks or aborts verification.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/citeguard/citeguard/internal/model"
)

// Sink accepts audit records without blocking the caller.
type Sink interface {
	Record(rec model.AuditRecord)
	Close()
}

// FileSink appends JSON-lines records through a bounded queue and a single
// writer goroutine. A full queue drops the record rather than stalling the
// pipeline.
type FileSink struct {
	path   string
	log    *zap.Logger
	queue  chan model.AuditRecord
	done   chan struct{}
	once   sync.Once
	closed sync.Once
}

// NewFileSink opens (or creates) the audit file and starts the writer.
func NewFileSink(path string, queueSize int, log *zap.Logger) (*FileSink, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".citeguard", "audit.jsonl")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &FileSink{
		path:  path,
		log:   log,
		queue: make(chan model.AuditRecord, queueSize),
		done:  make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Record enqueues one audit record. It never blocks; if the queue is full
// the record is dropped and the drop is logged locally.
func (s *FileSink) Record(rec model.AuditRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	select {
	case s.queue <- rec:
	default:
		s.log.Warn("audit queue full, dropping record",
			zap.String("kind", rec.Kind),
			zap.String("name", rec.Name))
	}
}

// Close drains the queue and stops the writer. Safe to call more than once.
func (s *FileSink) Close() {
	s.closed.Do(func() {
		close(s.queue)
		<-s.done
	})
}

func (s *FileSink) run() {
	defer close(s.done)

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		s.log.Warn("audit sink unavailable, records will be discarded", zap.Error(err))
		for range s.queue {
		}
		return
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	for rec := range s.queue {
		if err := enc.Encode(rec); err != nil {
			s.log.Warn("audit write failed", zap.Error(err))
		}
	}
}

// NopSink discards all records; used when auditing is disabled and in tests.
type NopSink struct{}

func (NopSink) Record(model.AuditRecord) {}
func (NopSink) Close()                   {}
