package codec

import (
	"github.com/shrinkit/nufx/internal/datasrc"
	"github.com/shrinkit/nufx/internal/nuerr"
)

// ProgressFunc is invoked as a Straw or Funnel drains its buffer. Returning
// false requests abort, which propagates as KindAborted and interrupts the
// current operation at the next check (spec.md §5 "Suspension points").
type ProgressFunc func(done, total int64) (ok bool)

// progressEvery bounds how often ProgressFunc is invoked, so a tight byte
// loop does not call back once per byte (spec.md §4.5 "rate-limited
// progress callbacks").
const progressEvery = 4096

// Straw is the pull-side adapter over a DataSource: it emits bytes on
// demand to a compressor and issues rate-limited progress callbacks.
type Straw struct {
	src      datasrc.Source
	total    int64
	read     int64
	sinceCB  int64
	progress ProgressFunc
}

func NewStraw(src datasrc.Source, total int64, progress ProgressFunc) *Straw {
	return &Straw{src: src, total: total, progress: progress}
}

// Prepare opens the underlying source.
func (s *Straw) Prepare() error { return s.src.PrepareInput() }

// Unprepare releases the underlying source's resources.
func (s *Straw) Unprepare() error { return s.src.UnprepareInput() }

// Rewind resets the straw to the beginning, used by the fallback-to-stored
// path (spec.md §4.5) when a compressor failed to shrink its input.
func (s *Straw) Rewind() error {
	s.read = 0
	s.sinceCB = 0
	return s.src.Rewind()
}

// Read implements io.Reader so codecs can be written against the standard
// streaming interfaces.
func (s *Straw) Read(p []byte) (int, error) {
	n, err := s.src.GetBlock(p)
	s.read += int64(n)
	s.sinceCB += int64(n)
	if s.progress != nil && (s.sinceCB >= progressEvery || err != nil) {
		s.sinceCB = 0
		if !s.progress(s.read, s.total) {
			return n, nuerr.New(nuerr.KindAborted, err, "straw aborted by progress callback")
		}
	}
	return n, err
}

// Read exactly srcLen bytes, the contract every Compressor must honor
// (spec.md §4.5).
func (s *Straw) ReadN(buf []byte, n int) (int, error) {
	total := 0
	for total < n {
		m, err := s.Read(buf[total:n])
		total += m
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
