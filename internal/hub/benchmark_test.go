package hub

import (
	"fmt"
	"testing"

	"github.com/didar67/enterprise-log-file-analyzer/internal/model"
)

// BenchmarkHubBroadcast measures the cost of broadcasting to N subscribers.
func BenchmarkHubBroadcast1(b *testing.B)  { benchHubBroadcast(b, 1) }
func BenchmarkHubBroadcast5(b *testing.B)  { benchHubBroadcast(b, 5) }
func BenchmarkHubBroadcast10(b *testing.B) { benchHubBroadcast(b, 10) }

func benchHubBroadcast(b *testing.B, numSubs int) {
	h := New(nil)
	defer h.Close()

	// Create subscribers and drain them.
	for i := 0; i < numSubs; i++ {
		ch := h.Subscribe()
		go func() {
			for range ch {
			}
		}()
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = h.Render(model.Event{
			Line:     i + 1,
			Rule:     "WARNING",
			Severity: model.SeverityWarning,
			Text:     fmt.Sprintf("2026-02-17 WARNING benchmark event %d", i),
		})
	}
}
