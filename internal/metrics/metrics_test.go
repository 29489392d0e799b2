package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesRecordedMetrics(t *testing.T) {
	m := New()
	m.RecordIngest("text", 1, 3)
	m.RecordQuery(true, 5*time.Millisecond)
	m.SetIndexSize("default", 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	for _, want := range []string{
		`ragbench_ingest_chunks_total{source="text"} 3`,
		`ragbench_query_total{cache="hit"} 1`,
		`ragbench_index_size{index="default"} 3`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordIngest("url", 1, 1)
	m.RecordIngestFailure("url")
	m.RecordQuery(false, time.Second)
	m.SetIndexSize("x", 1)
}

func TestNewTwice(t *testing.T) {
	// each instance has its own registry, so this must not panic
	New()
	New()
}
