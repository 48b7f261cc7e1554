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
	entriesCreatedTotal   atomic.Uint64
	entriesCommittedTotal atomic.Uint64
	commitFailedTotal     atomic.Uint64
	retryJobsReceived     atomic.Uint64
	retryJobsCompleted    atomic.Uint64
	retryJobsFailed       atomic.Uint64
	retryJobsDropped      atomic.Uint64

	commitDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000})
)

// IncEntryCreated increments the created-entries counter.
func IncEntryCreated() {
	entriesCreatedTotal.Add(1)
}

// IncEntryCommitted increments the committed-entries counter.
func IncEntryCommitted() {
	entriesCommittedTotal.Add(1)
}

// IncCommitFailed increments the failed-commit counter.
func IncCommitFailed() {
	commitFailedTotal.Add(1)
}

// IncRetryJobsReceived increments the retry-jobs-received counter.
func IncRetryJobsReceived() {
	retryJobsReceived.Add(1)
}

// IncRetryJobsCompleted increments the retry-jobs-completed counter.
func IncRetryJobsCompleted() {
	retryJobsCompleted.Add(1)
}

// IncRetryJobsFailed increments the retry-jobs-failed counter.
func IncRetryJobsFailed() {
	retryJobsFailed.Add(1)
}

// IncRetryJobsDropped increments the counter for unrecoverable retry messages.
func IncRetryJobsDropped() {
	retryJobsDropped.Add(1)
}

// ObserveCommitDurationMs records a commit duration in milliseconds.
func ObserveCommitDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	commitDuration.Observe(value)
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
	writeCounter(&buf, "entries_created_total", "Total pending entries created", entriesCreatedTotal.Load())
	writeCounter(&buf, "entries_committed_total", "Total entries committed to the ledger", entriesCommittedTotal.Load())
	writeCounter(&buf, "commit_failed_total", "Total failed commit attempts", commitFailedTotal.Load())
	writeCounter(&buf, "retry_jobs_received_total", "Total commit retry jobs received", retryJobsReceived.Load())
	writeCounter(&buf, "retry_jobs_completed_total", "Total commit retry jobs completed", retryJobsCompleted.Load())
	writeCounter(&buf, "retry_jobs_failed_total", "Total commit retry jobs failed", retryJobsFailed.Load())
	writeCounter(&buf, "retry_jobs_dropped_total", "Total unrecoverable retry messages dropped", retryJobsDropped.Load())
	writeHistogram(&buf, "commit_duration_ms", "Commit duration in milliseconds", commitDuration.Snapshot())
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
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
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
