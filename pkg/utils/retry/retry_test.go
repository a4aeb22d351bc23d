package retry

import (
	"errors"
	"testing"
)

func TestTry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Times(3).Try(func(attempt uint) error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestTry_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Times(5).Try(func(attempt uint) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestTry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Times(4).Try(func(attempt uint) error {
		calls++
		return errors.New("always failing")
	})
	if err == nil {
		t.Error("Expected an error after exhausting attempts")
	}
	if calls != 4 {
		t.Errorf("Expected 4 calls, got %d", calls)
	}
}

func TestTry_NilAction(t *testing.T) {
	if err := Times(1).Try(nil); err == nil {
		t.Error("Expected an error for a nil action")
	}
}
