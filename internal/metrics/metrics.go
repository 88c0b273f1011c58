package metrics

import (
	"fmt"
	"time"
)

// Metrics holds one Histogram per operation family this package exposes a
// typed method for. New families should get their own field rather than
// sharing one of these, so the printed profile stays meaningful per-op.
type Metrics struct {
	ReadAt         Histogram
	WriteAt        Histogram
	Fsync          Histogram
	Fdatasync      Histogram
	SyncFileRange  Histogram
	Nop            Histogram
	Accept         Histogram
	Send           Histogram
	Recv           Histogram
	SubmitAndEnter Histogram
}

// New returns a zeroed Metrics ready for concurrent use.
func New() *Metrics { return &Metrics{} }

// Measure is an RAII-style timer: construct it when an operation starts
// and call Done when it completes (or Wait returns) to record the elapsed
// time into h.
type Measure struct {
	h     *Histogram
	start time.Time
}

// StartMeasure begins timing an operation against h.
func StartMeasure(h *Histogram) Measure {
	return Measure{h: h, start: time.Now()}
}

// Done records the elapsed time since StartMeasure.
func (m Measure) Done() {
	m.h.Record(uint64(time.Since(m.start).Nanoseconds()))
}

type row struct {
	name string
	h    *Histogram
}

// PrintProfile writes a small ASCII table of per-operation latency
// percentiles to stdout, mirroring the profile dump the originating
// implementation prints when a ring is dropped.
func (m *Metrics) PrintProfile() {
	rows := []row{
		{"read_at", &m.ReadAt},
		{"write_at", &m.WriteAt},
		{"fsync", &m.Fsync},
		{"fdatasync", &m.Fdatasync},
		{"sync_file_range", &m.SyncFileRange},
		{"nop", &m.Nop},
		{"accept", &m.Accept},
		{"send", &m.Send},
		{"recv", &m.Recv},
		{"submit_and_enter", &m.SubmitAndEnter},
	}

	fmt.Printf("%-18s %10s %10s %10s %10s\n", "op", "count", "p50(us)", "p99(us)", "mean(us)")
	for _, r := range rows {
		if r.h.Count() == 0 {
			continue
		}
		fmt.Printf("%-18s %10d %10.1f %10.1f %10.1f\n",
			r.name,
			r.h.Count(),
			float64(r.h.Percentile(50))/1000,
			float64(r.h.Percentile(99))/1000,
			r.h.Mean()/1000,
		)
	}
}
