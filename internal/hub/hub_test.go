package hub

import (
	"testing"
	"time"

	"github.com/didar67/enterprise-log-file-analyzer/internal/model"
)

func TestHubBroadcast(t *testing.T) {
	h := New(nil)

	sub1 := h.Subscribe()
	sub2 := h.Subscribe()

	_ = h.Render(model.Event{Line: 1, Rule: "ERROR", Severity: model.SeverityCritical, Text: "ERROR disk full"})

	// Both subscribers should receive it.
	for i, sub := range []<-chan model.Event{sub1, sub2} {
		select {
		case e := <-sub:
			if e.Rule != "ERROR" {
				t.Errorf("sub%d: expected ERROR, got %s", i+1, e.Rule)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("sub%d: timed out", i+1)
		}
	}
}

func TestHubSlowConsumer(t *testing.T) {
	h := New(nil)

	// Subscribe but never read — simulates a slow consumer.
	_ = h.Subscribe()

	for i := 0; i < subscriberBuffer+100; i++ {
		_ = h.Render(model.Event{Line: i + 1})
	}

	if h.Dropped() != 100 {
		t.Errorf("expected 100 dropped events, got %d", h.Dropped())
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := New(nil)
	sub := h.Subscribe()

	h.Unsubscribe(sub)
	if _, ok := <-sub; ok {
		t.Error("expected channel to be closed")
	}

	// Publishing after unsubscribe must not panic.
	_ = h.Render(model.Event{Line: 1})
}

func TestHubClose(t *testing.T) {
	h := New(nil)
	sub := h.Subscribe()
	h.Close()

	if _, ok := <-sub; ok {
		t.Error("expected channel closed after Close")
	}
	if _, ok := <-h.Subscribe(); ok {
		t.Error("expected late subscription to be closed")
	}
	_ = h.Render(model.Event{Line: 1})
}
