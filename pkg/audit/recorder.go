package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/luridarmawan/dashboard-ai-boilerplate-sub000/pkg/config"
)

// Recorder writes audit records asynchronously so the request path never
// blocks on storage. Records are enqueued to a buffered channel drained by
// a background worker; on Close the channel is drained before returning.
type Recorder struct {
	store      Store
	cfg        config.AuditConfig
	recordChan chan *Record
	done       chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
	logger     *slog.Logger
}

// NewRecorder creates a recorder and starts its background worker.
func NewRecorder(store Store, cfg config.AuditConfig) *Recorder {
	r := &Recorder{
		store:      store,
		cfg:        cfg,
		recordChan: make(chan *Record, cfg.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder started",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)

	return r
}

// Record enqueues one audit record. Missing ID and CreatedAt fields are
// filled in; bodies are truncated to the configured limit. The call never
// blocks longer than the write timeout: if the queue stays full the record
// is dropped with an error log, favoring request latency over completeness.
func (r *Recorder) Record(record *Record) error {
	if !r.cfg.Enabled {
		return nil
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.RequestBody = truncate(record.RequestBody, r.cfg.MaxBodyBytes)
	record.ResponseBody = truncate(record.ResponseBody, r.cfg.MaxBodyBytes)

	select {
	case r.recordChan <- record:
		return nil
	case <-time.After(r.cfg.WriteTimeout):
		r.logger.Error("audit queue full, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"queue_capacity", r.cfg.AsyncBuffer,
		)
		return &DroppedError{RecordID: record.ID}
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping record",
			"record_id", record.ID,
		)
		return &DroppedError{RecordID: record.ID}
	}
}

// QueueDepth reports how many records are waiting to be written.
func (r *Recorder) QueueDepth() int {
	return len(r.recordChan)
}

// Close drains pending records and stops the worker.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.logger.Info("audit recorder stopped")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.write(record)

		case <-r.done:
			for {
				select {
				case record := <-r.recordChan:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	defer cancel()

	if err := r.store.Insert(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}

	r.logger.Debug("audit record written",
		"record_id", record.ID,
		"request_id", record.RequestID,
		"tenant_id", record.TenantID,
		"mode", record.Mode,
		"status", record.StatusCode,
	)
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}
