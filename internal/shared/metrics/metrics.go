package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	streamStartedTotal   atomic.Uint64
	streamCompletedTotal atomic.Uint64
	streamFailedTotal    atomic.Uint64
	framesEmittedTotal   atomic.Uint64

	streamDuration = newHistogram([]float64{250, 500, 1000, 2500, 5000, 10000, 20000, 40000, 80000})
)

// IncStreamStarted counts an interpretation stream that passed validation.
func IncStreamStarted() {
	streamStartedTotal.Add(1)
}

// IncStreamCompleted counts a stream that ended with [DONE].
func IncStreamCompleted() {
	streamCompletedTotal.Add(1)
}

// IncStreamFailed counts a stream that ended with an upstream or write error.
func IncStreamFailed() {
	streamFailedTotal.Add(1)
}

// AddFramesEmitted adds n snapshot frames to the emitted counter.
func AddFramesEmitted(n int) {
	if n <= 0 {
		return
	}
	framesEmittedTotal.Add(uint64(n))
}

// ObserveStreamDurationMs records a stream duration in milliseconds.
func ObserveStreamDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	streamDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "interpret_stream_started_total", "Total interpretation streams started", streamStartedTotal.Load())
	writeCounter(&buf, "interpret_stream_completed_total", "Total interpretation streams completed", streamCompletedTotal.Load())
	writeCounter(&buf, "interpret_stream_failed_total", "Total interpretation streams failed", streamFailedTotal.Load())
	writeCounter(&buf, "interpret_frames_emitted_total", "Total snapshot frames emitted", framesEmittedTotal.Load())
	writeHistogram(&buf, "interpret_stream_duration_ms", "Interpretation stream duration in milliseconds", streamDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
