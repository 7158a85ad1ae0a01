package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	var buf bytes.Buffer
	writeHistogram(&buf, "test_ms", "test", h.Snapshot())
	out := buf.String()

	for _, want := range []string{
		`test_ms_bucket{le="10"} 1`,
		`test_ms_bucket{le="100"} 2`,
		`test_ms_bucket{le="+Inf"} 3`,
		`test_ms_sum 555`,
		`test_ms_count 3`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestHandlerServesCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncStreamStarted()
	AddFramesEmitted(3)
	AddFramesEmitted(-1)

	r := gin.New()
	r.GET("/metrics", Handler())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{
		"interpret_stream_started_total",
		"interpret_stream_completed_total",
		"interpret_stream_failed_total",
		"interpret_frames_emitted_total",
		"interpret_stream_duration_ms_count",
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("unexpected content type %q", w.Header().Get("Content-Type"))
	}
}
