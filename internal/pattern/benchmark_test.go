package pattern

import (
	"fmt"
	"testing"

	"github.com/didar67/enterprise-log-file-analyzer/internal/model"
)

// BenchmarkClassifyBuiltin measures keyword-only classification.
func BenchmarkClassifyBuiltin(b *testing.B) {
	s, _ := New(nil)
	l := model.LogLine{Number: 1, Text: "2026-02-17 12:00:00 ERROR failed to process item"}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s.Classify(l)
	}
}

// BenchmarkClassifyThroughput measures sustained classification over mixed lines.
func BenchmarkClassifyThroughput(b *testing.B) {
	s, _ := New(Rules(`timeout`, `latency=\d{3,}ms`, `(?i)oom`))

	lines := make([]model.LogLine, 1000)
	for i := range lines {
		var text string
		switch i % 4 {
		case 0:
			text = fmt.Sprintf("2026-02-17 12:00:00 INFO request %d completed", i)
		case 1:
			text = fmt.Sprintf("2026-02-17 12:00:00 WARNING latency=%dms", i*10)
		case 2:
			text = fmt.Sprintf("2026-02-17 12:00:00 ERROR timeout on item %d", i)
		case 3:
			text = "2026-02-17 12:00:00 INFO process OOM killer idle"
		}
		lines[i] = model.LogLine{Number: i + 1, Text: text}
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s.Classify(lines[i%1000])
	}
}
