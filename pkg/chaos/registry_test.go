package chaos

import (
	"context"
	"testing"

	"github.com/hardenlab/resilience-go/pkg/types"
)

func TestSafetyRegistry_ValidateUnknownName(t *testing.T) {
	registry := NewSafetyRegistry()
	registry.Register("known", func(ctx context.Context) error { return nil })

	if err := registry.Validate([]string{"known"}); err != nil {
		t.Errorf("Expected registered name to validate, got %v", err)
	}
	if err := registry.Validate([]string{"known", "unknown"}); err == nil {
		t.Error("Expected validation to fail on the first unknown name")
	}
	if err := registry.Validate(nil); err != nil {
		t.Errorf("Expected empty list to validate, got %v", err)
	}
}

func TestSafetyRegistry_RegisterReplaces(t *testing.T) {
	registry := NewSafetyRegistry()
	registry.Register("check", func(ctx context.Context) error { return nil })
	registry.Register("check", func(ctx context.Context) error { return context.Canceled })

	check, ok := registry.Lookup("check")
	if !ok {
		t.Fatal("Expected the check to be registered")
	}
	if err := check(context.Background()); err == nil {
		t.Error("Expected the replacement check to be the active one")
	}
}

func TestRollbackRegistry_Lookup(t *testing.T) {
	registry := NewRollbackRegistry()
	registry.Register("restart", func(ctx context.Context, step types.RollbackStep) error { return nil })

	if _, ok := registry.Lookup("restart"); !ok {
		t.Error("Expected registered step to be found")
	}
	if _, ok := registry.Lookup("missing"); ok {
		t.Error("Expected unknown step to be absent")
	}
}

func TestActiveRegistry_SingleRunPerID(t *testing.T) {
	registry := newActiveRegistry()
	run := &activeRun{result: &types.ChaosTestResult{}, cancel: func() {}}

	if err := registry.add("s-1", run); err != nil {
		t.Fatalf("Expected first add to succeed, got %v", err)
	}
	if err := registry.add("s-1", run); err == nil {
		t.Error("Expected duplicate add to be rejected")
	}

	registry.remove("s-1")
	if err := registry.add("s-1", run); err != nil {
		t.Errorf("Expected add after removal to succeed, got %v", err)
	}
}
