// Package audit ships admin action records to durable sinks. The application
// log already carries every record; sinks exist for consumers with their own
// retention, such as a SIEM behind a webhook or an append-only file.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin-console/admin-console/internal/config"
)

// Record is one admin action.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	Outcome    string    `json:"outcome"`
	Status     int       `json:"status"`
	IP         string    `json:"ip,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

// Sink receives audit records.
type Sink interface {
	Write(ctx context.Context, rec *Record) error
	Close() error
}

// Fanout writes every record to all of its sinks.
type Fanout struct {
	sinks []Sink
}

// New builds the sinks enabled in cfg. With nothing configured the result is an
// empty Fanout whose Write is a no-op.
func New(cfg config.AuditConfig) (*Fanout, error) {
	f := &Fanout{}
	if cfg.File.Path != "" {
		s, err := NewFileSink(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to create file sink: %w", err)
		}
		f.sinks = append(f.sinks, s)
	}
	if cfg.Webhook.URL != "" {
		f.sinks = append(f.sinks, NewWebhookSink(cfg.Webhook))
	}
	return f, nil
}

// NewFanout wraps already built sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Len reports how many sinks are attached.
func (f *Fanout) Len() int { return len(f.sinks) }

// Write delivers rec to every sink. A failing sink does not stop the others.
func (f *Fanout) Write(ctx context.Context, rec *Record) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Write(ctx, rec); err != nil {
			slog.Warn("audit sink write failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
