package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/san-kum/dpsim/internal/sim"
)

var ErrUnknownFormat = errors.New("export: unknown format")

// Formats lists the accepted frame formats.
var Formats = []string{"text", "csv", "json"}

type FrameWriter interface {
	Write(f sim.Frame) error
	Flush() error
}

// Record is the flat form of a frame used by the csv and json writers.
type Record struct {
	Seq      int     `json:"seq"`
	Steps    int     `json:"steps"`
	Time     float64 `json:"time"`
	Theta1   float64 `json:"theta1"`
	Theta2   float64 `json:"theta2"`
	Omega1   float64 `json:"omega1"`
	Omega2   float64 `json:"omega2"`
	Velocity float64 `json:"velocity"`
	Inertia  float64 `json:"inertia"`
	Gravity  float64 `json:"gravity"`
}

func NewRecord(f sim.Frame) Record {
	return Record{
		Seq:      f.Seq,
		Steps:    f.Steps,
		Time:     f.Time,
		Theta1:   f.State.Theta1(),
		Theta2:   f.State.Theta2(),
		Omega1:   f.State.Omega1(),
		Omega2:   f.State.Omega2(),
		Velocity: f.Energy.Velocity,
		Inertia:  f.Energy.Inertia,
		Gravity:  f.Energy.Gravity,
	}
}

var csvHeader = []string{"seq", "steps", "time", "theta1", "theta2", "omega1", "omega2", "velocity", "inertia", "gravity"}

func (r Record) fields() []string {
	ff := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		strconv.Itoa(r.Seq), strconv.Itoa(r.Steps), ff(r.Time),
		ff(r.Theta1), ff(r.Theta2), ff(r.Omega1), ff(r.Omega2),
		ff(r.Velocity), ff(r.Inertia), ff(r.Gravity),
	}
}

func NewFrameWriter(w io.Writer, format string) (FrameWriter, error) {
	switch format {
	case "text":
		return &textWriter{w: w}, nil
	case "csv":
		return &csvWriter{w: csv.NewWriter(w)}, nil
	case "json":
		return &jsonWriter{enc: json.NewEncoder(w)}, nil
	default:
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownFormat, format, Formats)
	}
}

type textWriter struct {
	w io.Writer
}

func (t *textWriter) Write(f sim.Frame) error {
	_, err := fmt.Fprintf(t.w, "%6d t=%8.3f %s E=[%.4f %.4f %.4f]\n",
		f.Seq, f.Time, f.State, f.Energy.Velocity, f.Energy.Inertia, f.Energy.Gravity)
	return err
}

func (t *textWriter) Flush() error { return nil }

type csvWriter struct {
	w       *csv.Writer
	started bool
}

func (c *csvWriter) Write(f sim.Frame) error {
	if !c.started {
		if err := c.w.Write(csvHeader); err != nil {
			return err
		}
		c.started = true
	}
	return c.w.Write(NewRecord(f).fields())
}

func (c *csvWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// jsonWriter emits one JSON object per line. Non-finite values cannot be
// encoded and surface as errors.
type jsonWriter struct {
	enc *json.Encoder
}

func (j *jsonWriter) Write(f sim.Frame) error {
	return j.enc.Encode(NewRecord(f))
}

func (j *jsonWriter) Flush() error { return nil }

// Stream adapts a FrameWriter to sim.Observer. It stops writing after the
// first error, which Close reports.
type Stream struct {
	mu  sync.Mutex
	w   FrameWriter
	err error
}

func NewStream(w FrameWriter) *Stream {
	return &Stream{w: w}
}

func (s *Stream) OnFrame(f sim.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.err = s.w.Write(f)
}

// Close flushes the writer and returns the first error seen.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil && s.err == nil {
		s.err = err
	}
	return s.err
}
