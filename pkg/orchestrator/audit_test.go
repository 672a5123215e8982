package orchestrator

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func sampleEvents() []AuditEvent {
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	return []AuditEvent{
		{ExecutionID: "e1", Kind: "template", Name: "greet", StepID: "hello", Skill: "echo",
			Status: "completed", Output: map[string]any{"echoed": "hi"}, At: base},
		{ExecutionID: "e1", Kind: "template", Name: "greet", StepID: "twice", Skill: "echo",
			Status: "failed", Error: "boom", At: base.Add(time.Second)},
		{ExecutionID: "e2", Kind: "workflow", Name: "ad-hoc", StepID: "step_1", Skill: "search",
			Status: "completed", At: base.Add(2 * time.Second)},
	}
}

func populate(t *testing.T, store AuditStore) {
	t.Helper()
	for _, ev := range sampleEvents() {
		if err := store.Record(context.Background(), ev); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
}

func verifyStore(t *testing.T, store AuditStore) {
	t.Helper()
	ctx := context.Background()

	all, err := store.List(ctx, AuditFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].StepID != "hello" || all[2].StepID != "step_1" {
		t.Errorf("record order not preserved: %s .. %s", all[0].StepID, all[2].StepID)
	}
	if all[0].Output["echoed"] != "hi" {
		t.Errorf("output round-trip = %v, want hi", all[0].Output)
	}

	byExec, err := store.List(ctx, AuditFilter{ExecutionID: "e1"})
	if err != nil {
		t.Fatalf("List(execution) error = %v", err)
	}
	if len(byExec) != 2 {
		t.Errorf("len(e1 events) = %d, want 2", len(byExec))
	}

	failed, err := store.List(ctx, AuditFilter{Status: "failed"})
	if err != nil {
		t.Fatalf("List(status) error = %v", err)
	}
	if len(failed) != 1 || failed[0].Error != "boom" {
		t.Errorf("failed events = %+v, want single boom event", failed)
	}

	bySkill, err := store.List(ctx, AuditFilter{Skill: "search"})
	if err != nil {
		t.Fatalf("List(skill) error = %v", err)
	}
	if len(bySkill) != 1 || bySkill[0].Kind != "workflow" {
		t.Errorf("search events = %+v, want single workflow event", bySkill)
	}

	limited, err := store.List(ctx, AuditFilter{Limit: 2})
	if err != nil {
		t.Fatalf("List(limit) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("len(limited) = %d, want 2", len(limited))
	}
}

func TestMemoryAuditStore(t *testing.T) {
	store := NewMemoryAuditStore()
	populate(t, store)
	verifyStore(t, store)
}

func TestSQLiteAuditStore(t *testing.T) {
	store, err := OpenSQLiteAuditStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteAuditStore() error = %v", err)
	}
	defer store.Close()

	populate(t, store)
	verifyStore(t, store)
}

func TestSQLiteAuditStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	store, err := OpenSQLiteAuditStore(path)
	if err != nil {
		t.Fatalf("OpenSQLiteAuditStore() error = %v", err)
	}
	populate(t, store)
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenSQLiteAuditStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	events, err := reopened.List(context.Background(), AuditFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 3 {
		t.Errorf("len(events) after reopen = %d, want 3", len(events))
	}
}
