// Package benchmark measures decode latency across pipeline settings.
package benchmark

import (
	"context"
	"fmt"
	"io"
	"math"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/barscan/internal/common"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64
	TotalAllocBytes uint64
	NumGC           uint32
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{AllocBytes: m.Alloc, TotalAllocBytes: m.TotalAlloc, NumGC: m.NumGC}
}

// Func is one measured operation. It reports how many barcodes it decoded.
type Func func(ctx context.Context) (int, error)

// Result summarises the iterations of one benchmark.
type Result struct {
	Name       string
	Iterations int
	Total      time.Duration
	Mean       time.Duration
	P50        time.Duration
	P95        time.Duration
	Max        time.Duration
	// Allocated is the cumulative bytes allocated while running.
	Allocated uint64
	GCRuns    uint32
	Barcodes  int
	Err       error
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Err)
	}
	return fmt.Sprintf("%s: %d iterations, mean %v, p50 %v, p95 %v, max %v, %d barcodes, alloc %d KB",
		r.Name, r.Iterations, r.Mean.Round(time.Microsecond), r.P50.Round(time.Microsecond),
		r.P95.Round(time.Microsecond), r.Max.Round(time.Microsecond), r.Barcodes, r.Allocated/1024)
}

type entry struct {
	name string
	fn   Func
}

// Suite runs named benchmarks in registration order.
type Suite struct {
	mu      sync.Mutex
	entries []entry
	results []Result
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add registers fn under name.
func (s *Suite) Add(name string, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{name: name, fn: fn})
}

// Len returns the number of registered benchmarks.
func (s *Suite) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run runs the benchmark called name.
func (s *Suite) Run(ctx context.Context, name string, iterations int) Result {
	s.mu.Lock()
	idx := slices.IndexFunc(s.entries, func(e entry) bool { return e.name == name })
	var e entry
	if idx >= 0 {
		e = s.entries[idx]
	}
	s.mu.Unlock()

	if idx < 0 {
		return Result{Name: name, Err: fmt.Errorf("benchmark %q not found", name)}
	}
	return run(ctx, e, iterations)
}

// RunAll runs every benchmark. A cancelled context marks the remaining
// benchmarks as failed.
func (s *Suite) RunAll(ctx context.Context, iterations int) []Result {
	s.mu.Lock()
	entries := slices.Clone(s.entries)
	s.mu.Unlock()

	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		results = append(results, run(ctx, e, iterations))
	}

	s.mu.Lock()
	s.results = results
	s.mu.Unlock()
	return results
}

// Results returns the results of the last RunAll.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.results)
}

func run(ctx context.Context, e entry, iterations int) Result {
	if iterations < 1 {
		iterations = 1
	}
	res := Result{Name: e.name}

	runtime.GC()
	before := GetMemoryStats()
	sw := common.NewStopwatch()
	samples := make([]time.Duration, 0, iterations)

	for range iterations {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		n, err := e.fn(ctx)
		samples = append(samples, sw.Lap("iteration"))
		if err != nil {
			res.Err = err
			break
		}
		res.Barcodes = n
	}

	after := GetMemoryStats()
	res.Iterations = len(samples)
	res.Total = sw.Get("iteration")
	res.Allocated = after.TotalAllocBytes - before.TotalAllocBytes
	res.GCRuns = after.NumGC - before.NumGC
	if len(samples) > 0 {
		res.Mean = res.Total / time.Duration(len(samples))
		slices.Sort(samples)
		res.P50 = percentile(samples, 0.50)
		res.P95 = percentile(samples, 0.95)
		res.Max = samples[len(samples)-1]
	}
	return res
}

// percentile uses nearest rank on sorted samples.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	return sorted[max(0, min(rank, len(sorted)-1))]
}

// Variant is one pipeline configuration under comparison.
type Variant struct {
	Name   string
	Config pipeline.Config
}

// Input is an encoded image to decode.
type Input struct {
	Name string
	Data []byte
}

// NewPipelineSuite registers one benchmark per variant and input. Each
// iteration decodes the input once. The returned closer releases the
// pipelines.
func NewPipelineSuite(variants []Variant, inputs []Input) (*Suite, func(), error) {
	suite := NewSuite()
	var pipelines []*pipeline.Pipeline
	closeAll := func() {
		for _, p := range pipelines {
			_ = p.Close()
		}
	}

	for _, v := range variants {
		pl, err := pipeline.New(v.Config)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("variant %s: %w", v.Name, err)
		}
		pipelines = append(pipelines, pl)

		for _, in := range inputs {
			data := in.Data
			suite.Add(v.Name+"/"+in.Name, func(ctx context.Context) (int, error) {
				res, err := pl.Run(ctx, data)
				if err != nil {
					return 0, err
				}
				return len(res.Results), nil
			})
		}
	}
	return suite, closeAll, nil
}

// PrintResults writes one line per result followed by a short system line.
func PrintResults(w io.Writer, results []Result) {
	_, _ = fmt.Fprintln(w, "Benchmark Results:")
	_, _ = fmt.Fprintln(w, strings.Repeat("=", 18))
	for _, r := range results {
		_, _ = fmt.Fprintln(w, r.String())
	}
	_, _ = fmt.Fprintf(w, "\n%s/%s, %d CPUs, %s\n", runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version())
}
