package runner

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds in microseconds: 1us to 60s.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Latency summarizes how long executed checks took.
type Latency struct {
	Count int64
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
}

type latencyRecorder struct {
	histogram *hdrhistogram.Histogram
}

func newLatencyRecorder() *latencyRecorder {
	return &latencyRecorder{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
	}
}

func (l *latencyRecorder) record(d time.Duration) {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	_ = l.histogram.RecordValue(us)
}

func (l *latencyRecorder) summary() Latency {
	if l.histogram.TotalCount() == 0 {
		return Latency{}
	}
	us := func(v int64) time.Duration {
		return time.Duration(v) * time.Microsecond
	}
	return Latency{
		Count: l.histogram.TotalCount(),
		P50:   us(l.histogram.ValueAtQuantile(50)),
		P95:   us(l.histogram.ValueAtQuantile(95)),
		P99:   us(l.histogram.ValueAtQuantile(99)),
		Max:   us(l.histogram.Max()),
	}
}
