// Package common provides small helpers shared by the pipeline and server.
package common

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Lap is one named stage measured by a Stopwatch.
type Lap struct {
	Name     string
	Duration time.Duration
}

// Stopwatch records consecutive stage durations. Each Lap measures the time
// since the previous Lap (or since start). It is safe for concurrent use.
type Stopwatch struct {
	mu    sync.Mutex
	start time.Time
	last  time.Time
	laps  []Lap
}

// NewStopwatch starts a stopwatch.
func NewStopwatch() *Stopwatch {
	now := time.Now()
	return &Stopwatch{start: now, last: now}
}

// Lap closes the current stage under name and returns its duration.
func (s *Stopwatch) Lap(name string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	d := now.Sub(s.last)
	s.last = now
	s.laps = append(s.laps, Lap{Name: name, Duration: d})
	return d
}

// Get returns the summed duration of all laps called name.
func (s *Stopwatch) Get(name string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var d time.Duration
	for _, l := range s.laps {
		if l.Name == name {
			d += l.Duration
		}
	}
	return d
}

// Laps returns a copy of the recorded laps in order.
func (s *Stopwatch) Laps() []Lap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Lap(nil), s.laps...)
}

// Elapsed returns the time since the stopwatch was started.
func (s *Stopwatch) Elapsed() time.Duration {
	return time.Since(s.start)
}

// String renders laps as "name=12ms name=3ms".
func (s *Stopwatch) String() string {
	laps := s.Laps()
	parts := make([]string, len(laps))
	for i, l := range laps {
		parts[i] = fmt.Sprintf("%s=%v", l.Name, l.Duration.Round(time.Microsecond))
	}
	return strings.Join(parts, " ")
}

// Milliseconds converts d to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
