package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitUnregisteredProviderIsUnthrottled(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := r.Wait(ctx, "nonexistent"); err != nil {
		t.Errorf("expected no error for an unregistered provider, got %v", err)
	}
}

func TestWaitRespectsRegisteredRate(t *testing.T) {
	r := NewRegistry()
	r.Register("geo", 1000) // fast enough not to block the test

	ctx := context.Background()
	if err := r.Wait(ctx, "geo"); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
}

func TestWaitCancelledContext(t *testing.T) {
	r := NewRegistry()
	r.Register("geo", 0.0001) // effectively no tokens available

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	if err := r.Wait(ctx, "geo"); err == nil {
		t.Errorf("expected context deadline to produce an error")
	}
}

func TestRegisterZeroOrNegativeRateFallsBackToOne(t *testing.T) {
	r := NewRegistry()
	r.Register("geo", 0)
	r.Register("pubmed", -5)
	// Both should be usable without panicking.
	ctx := context.Background()
	if err := r.Wait(ctx, "geo"); err != nil {
		t.Errorf("Wait() error for zero-rate registration: %v", err)
	}
	if err := r.Wait(ctx, "pubmed"); err != nil {
		t.Errorf("Wait() error for negative-rate registration: %v", err)
	}
}
