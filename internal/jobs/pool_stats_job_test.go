package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"invite-exchange/internal/models"
)

type stubSummarizer struct {
	calls   atomic.Int32
	summary *models.PoolSummary
	err     error
}

func (s *stubSummarizer) Summary(ctx context.Context) (*models.PoolSummary, error) {
	s.calls.Add(1)
	return s.summary, s.err
}

func TestPoolStatsJob_RunOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	stub := &stubSummarizer{summary: &models.PoolSummary{ActiveCodes: 3, RemainingUses: 21, ClaimsToday: 4, CodesPostedToday: 2}}

	NewPoolStatsJob(stub, time.Minute, zap.New(core)).RunOnce()

	entries := logs.FilterMessage("Pool stats").All()
	if len(entries) != 1 {
		t.Fatalf("expected one summary log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["active_codes"] != int64(3) || fields["remaining_uses"] != int64(21) {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestPoolStatsJob_RunOnceError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	stub := &stubSummarizer{err: errors.New("db down")}

	NewPoolStatsJob(stub, time.Minute, zap.New(core)).RunOnce()

	if logs.FilterMessage("Failed to summarise pool").Len() != 1 {
		t.Errorf("expected error log, got %v", logs.All())
	}
}

func TestPoolStatsJob_Disabled(t *testing.T) {
	stub := &stubSummarizer{summary: &models.PoolSummary{}}
	job := NewPoolStatsJob(stub, 0, zap.NewNop())

	if err := job.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := job.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stub.calls.Load() != 0 {
		t.Errorf("disabled job ran %d times", stub.calls.Load())
	}
}

func TestPoolStatsJob_Scheduled(t *testing.T) {
	stub := &stubSummarizer{summary: &models.PoolSummary{}}
	job := NewPoolStatsJob(stub, 20*time.Millisecond, zap.NewNop())

	if err := job.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for stub.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := job.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stub.calls.Load() == 0 {
		t.Error("expected the scheduled job to run")
	}
}
