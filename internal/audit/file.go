package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/admin-console/admin-console/internal/config"
)

// FileSink appends records as JSON lines and rotates the file by size.
type FileSink struct {
	cfg  config.AuditFileConfig
	file *os.File
	mu   sync.Mutex
}

// NewFileSink opens (or creates) the file at cfg.Path for appending.
func NewFileSink(cfg config.AuditFileConfig) (*FileSink, error) {
	file, err := openAppend(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &FileSink{cfg: cfg, file: file}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // #nosec G304 -- operator-configured path
}

// Write appends rec as one line.
func (s *FileSink) Write(_ context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.MaxSizeMB > 0 {
		if info, err := s.file.Stat(); err == nil && info.Size() > int64(s.cfg.MaxSizeMB)*1024*1024 {
			if err := s.rotate(); err != nil {
				slog.Warn("failed to rotate audit log", "path", s.cfg.Path, "error", err)
			}
		}
	}

	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// rotate shifts path.N to path.N+1, moves the live file to path.1 and drops
// anything past MaxBackups. Callers hold s.mu.
func (s *FileSink) rotate() error {
	if err := s.file.Close(); err != nil {
		return err
	}

	for i := s.cfg.MaxBackups - 1; i >= 1; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", s.cfg.Path, i), fmt.Sprintf("%s.%d", s.cfg.Path, i+1))
	}
	_ = os.Rename(s.cfg.Path, s.cfg.Path+".1")
	if s.cfg.MaxBackups > 0 {
		_ = os.Remove(fmt.Sprintf("%s.%d", s.cfg.Path, s.cfg.MaxBackups+1))
	}

	file, err := openAppend(s.cfg.Path)
	if err != nil {
		return err
	}
	s.file = file
	return nil
}

// Close closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
