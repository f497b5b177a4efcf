package repository

import (
	"context"
	"sync"

	"LGDPulse/internal/domain/models"
)

// MemoryVerdictLog implements VerdictLog in memory, append-only. It backs
// tests and redis-less runs.
type MemoryVerdictLog struct {
	mu       sync.RWMutex
	verdicts []models.GovernanceVerdict
}

// NewMemoryVerdictLog creates an in-memory verdict log.
func NewMemoryVerdictLog() *MemoryVerdictLog {
	return &MemoryVerdictLog{}
}

func (l *MemoryVerdictLog) Append(_ context.Context, v models.GovernanceVerdict) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verdicts = append(l.verdicts, v)
	return nil
}

// History returns the most recent verdicts for a model, newest first.
func (l *MemoryVerdictLog) History(_ context.Context, modelID string, limit int) ([]models.GovernanceVerdict, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.GovernanceVerdict, 0, limit)
	for i := len(l.verdicts) - 1; i >= 0 && len(out) < limit; i-- {
		if l.verdicts[i].ModelID == modelID {
			out = append(out, l.verdicts[i])
		}
	}
	return out, nil
}

func (l *MemoryVerdictLog) Close() error { return nil }
