package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/admin-console/admin-console/internal/config"
	"github.com/admin-console/admin-console/internal/safego"
)

const (
	defaultWebhookTimeout = 10 * time.Second
	defaultFlushInterval  = 5 * time.Second
	webhookQueueSize      = 1000
)

// WebhookSink posts records as JSON. With BatchSize > 0 records are queued
// and posted as a JSON array when the batch fills, on every flush interval,
// and on Close.
type WebhookSink struct {
	cfg       config.AuditWebhookConfig
	client    *http.Client
	queue     chan *Record
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// mu orders enqueues against Close so nothing is queued after the final drain.
	mu     sync.RWMutex
	closed bool
}

// NewWebhookSink creates the sink and, when batching, starts its flush loop.
func NewWebhookSink(cfg config.AuditWebhookConfig) *WebhookSink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultWebhookTimeout
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}

	s := &WebhookSink{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		queue:   make(chan *Record, webhookQueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if cfg.BatchSize > 0 {
		safego.Go("audit-webhook", s.run)
	} else {
		close(s.stopped)
	}
	return s
}

func (s *WebhookSink) run() {
	defer close(s.stopped)

	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]*Record, 0, s.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.post(batch); err != nil {
			slog.Warn("failed to send audit batch", "records", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-s.queue:
			batch = append(batch, rec)
			if len(batch) >= s.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			for {
				select {
				case rec := <-s.queue:
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Write queues rec when batching, falling back to a direct post when the
// queue is full or the sink is closed. Without batching it posts immediately.
func (s *WebhookSink) Write(ctx context.Context, rec *Record) error {
	if s.cfg.BatchSize > 0 && s.enqueue(rec) {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	return s.send(ctx, data)
}

func (s *WebhookSink) enqueue(rec *Record) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- rec:
		return true
	default:
		return false
	}
}

func (s *WebhookSink) post(batch []*Record) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal audit batch: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	return s.send(ctx, data)
}

func (s *WebhookSink) send(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Close flushes any queued records and stops the flush loop.
func (s *WebhookSink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
	<-s.stopped
	return nil
}
