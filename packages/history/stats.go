package history

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/abdul-hamid-achik/httpcraft/packages/exchange"
)

const (
	// latency bounds in microseconds: 1us to 60s
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Stats summarizes the latencies and outcomes of a set of exchanges.
type Stats struct {
	Count       int
	Min         time.Duration
	Max         time.Duration
	Mean        time.Duration
	P50         time.Duration
	P95         time.Duration
	P99         time.Duration
	StatusCodes map[int]int
	Kinds       map[exchange.Kind]int
	CSRFUpdates int
}

// Stats computes latency percentiles over the current entries.
func (l *Ledger) Stats() Stats {
	return Summarize(l.All())
}

// Summarize computes Stats for exchanges. Latencies are clamped to the
// histogram range of 1us to 60s.
func Summarize(exchanges []*exchange.Exchange) Stats {
	s := Stats{
		StatusCodes: make(map[int]int),
		Kinds:       make(map[exchange.Kind]int),
	}
	if len(exchanges) == 0 {
		return s
	}

	// 3 significant digits
	h := hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)
	for _, ex := range exchanges {
		latencyUs := ex.Response.Elapsed.Microseconds()
		if latencyUs < minLatencyUs {
			latencyUs = minLatencyUs
		}
		if latencyUs > maxLatencyUs {
			latencyUs = maxLatencyUs
		}
		_ = h.RecordValue(latencyUs)

		s.StatusCodes[ex.Response.StatusCode]++
		s.Kinds[ex.Response.Kind()]++
		if ex.CSRFTokenUpdated {
			s.CSRFUpdates++
		}
	}

	s.Count = len(exchanges)
	s.Min = time.Duration(h.Min()) * time.Microsecond
	s.Max = time.Duration(h.Max()) * time.Microsecond
	s.Mean = time.Duration(h.Mean()) * time.Microsecond
	s.P50 = time.Duration(h.ValueAtQuantile(50)) * time.Microsecond
	s.P95 = time.Duration(h.ValueAtQuantile(95)) * time.Microsecond
	s.P99 = time.Duration(h.ValueAtQuantile(99)) * time.Microsecond
	return s
}

// SuccessRate returns the share of 2xx responses as a percentage.
func (s Stats) SuccessRate() float64 {
	if s.Count == 0 {
		return 0
	}
	ok := 0
	for code, n := range s.StatusCodes {
		if code >= 200 && code < 300 {
			ok += n
		}
	}
	return float64(ok) / float64(s.Count) * 100
}
