package core

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestPurgeImportRuns_Batches(t *testing.T) {
	affected := []int{2, 2, 1}
	calls := 0
	db := &fakeDB{tag: func(string) string {
		n := affected[calls]
		calls++
		return fmt.Sprintf("DELETE %d", n)
	}}
	svc := NewService(db, Options{})

	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	total, err := svc.PurgeImportRuns(context.Background(), cutoff, 2)
	if err != nil {
		t.Fatalf("PurgeImportRuns() error: %v", err)
	}
	if total != 5 || calls != 3 {
		t.Errorf("total = %d after %d statements, want 5 after 3", total, calls)
	}
	if got := db.execs[0].args[0]; got != cutoff {
		t.Errorf("cutoff arg = %v", got)
	}
}

func TestPurgeImportRuns_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	db := &fakeDB{}
	if _, err := NewService(db, Options{}).PurgeImportRuns(ctx, time.Now(), 10); err == nil {
		t.Error("expected context error")
	}
	if len(db.execs) != 0 {
		t.Error("no statement should run after cancellation")
	}
}

func TestRetentionConfigDefaults(t *testing.T) {
	cfg := RetentionConfig{}.withDefaults()
	if cfg.RetentionDays != 180 || cfg.BatchSize != 1000 || cfg.CheckInterval != 24*time.Hour {
		t.Errorf("defaults = %+v", cfg)
	}

	cfg = RetentionConfig{RetentionDays: 30}.withDefaults()
	if cfg.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", cfg.RetentionDays)
	}
}

func TestStartRetentionScheduler_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	db := &fakeDB{tag: func(string) string { return "DELETE 0" }}
	svc := NewService(db, Options{})

	done := make(chan struct{})
	go func() {
		svc.StartRetentionScheduler(ctx, RetentionConfig{CheckInterval: time.Hour})
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(db.calls("DELETE FROM import_runs")) == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduler did not run on start")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
