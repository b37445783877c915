package overlay

import (
	"fmt"
	"io"
	"sync"
)

// Region is an independently updated part of the panel
type Region string

const (
	RegionStatus       Region = "status"
	RegionDetails      Region = "details"
	RegionAlternatives Region = "alternatives"
	RegionIssues       Region = "issues"
)

// Regions in display order
var Regions = []Region{RegionStatus, RegionDetails, RegionAlternatives, RegionIssues}

// Sink receives rendered regions. Render may be called from several
// goroutines at once.
type Sink interface {
	Render(region Region, html string)
}

// Panel keeps the latest markup of every region in memory
type Panel struct {
	mu      sync.RWMutex
	regions map[Region]string
}

// NewPanel creates an empty panel
func NewPanel() *Panel {
	return &Panel{regions: make(map[Region]string)}
}

// Render replaces the markup of a region
func (p *Panel) Render(region Region, html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regions[region] = html
}

// Region returns the markup of a region, "" if never rendered
func (p *Panel) Region(region Region) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.regions[region]
}

// Snapshot returns a copy of all rendered regions
func (p *Panel) Snapshot() map[Region]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[Region]string, len(p.regions))
	for region, html := range p.regions {
		out[region] = html
	}
	return out
}

// WriterSink prints every update as it arrives, for watch mode
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing to w
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Render writes "[region] html"
func (s *WriterSink) Render(region Region, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "[%s] %s\n", region, html)
}

// MultiSink fans updates out to several sinks
type MultiSink []Sink

// Render forwards to every sink
func (m MultiSink) Render(region Region, html string) {
	for _, sink := range m {
		sink.Render(region, html)
	}
}
