package codec

import (
	"github.com/shrinkit/nufx/internal/datasrc"
	"github.com/shrinkit/nufx/internal/eol"
	"github.com/shrinkit/nufx/internal/nuerr"
)

const funnelBufSize = 16 * 1024

// Funnel is the push-side adapter over a DataSink. It optionally runs the
// sink's bytes through EOL conversion and high-bit stripping
// (internal/eol) and issues progress callbacks as bytes reach the sink
// (spec.md §4.5). It does not buffer: each Write is passed to the sink
// directly, and the funnelBufSize-capacity buf field is allocated but
// never filled.
type Funnel struct {
	sink     datasrc.Sink
	conv     *eol.Converter // nil when no conversion is configured
	buf      []byte
	total    int64
	written  int64
	sinceCB  int64
	progress ProgressFunc
}

// NewFunnel wraps sink. conv may be nil for a pass-through funnel (e.g. a
// filename/comment pre-sized copy, which never needs EOL conversion).
func NewFunnel(sink datasrc.Sink, conv *eol.Converter, total int64, progress ProgressFunc) *Funnel {
	return &Funnel{sink: sink, conv: conv, total: total, progress: progress, buf: make([]byte, 0, funnelBufSize)}
}

// Write implements io.Writer.
func (f *Funnel) Write(p []byte) (int, error) {
	in := p
	if f.conv != nil {
		in = f.conv.Convert(p)
	}
	n, err := f.flushBlock(in)
	if err != nil {
		return 0, err
	}
	_ = n
	// The byte count reported to the caller must match len(p) (the
	// uncompressed/pre-conversion length), not the post-conversion length,
	// so callers tracking "how much of srcLen have I consumed" stay correct.
	return len(p), nil
}

func (f *Funnel) flushBlock(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		n, err := f.sink.PutBlock(p)
		written += n
		f.written += int64(n)
		f.sinceCB += int64(n)
		if err != nil {
			return written, nuerr.New(nuerr.KindFileWrite, err, "funnel write")
		}
		p = p[n:]
		if f.progress != nil && f.sinceCB >= progressEvery {
			f.sinceCB = 0
			if !f.progress(f.written, f.total) {
				return written, nuerr.New(nuerr.KindAborted, nil, "funnel aborted by progress callback")
			}
		}
	}
	return written, nil
}

// Written returns the number of (post-conversion) bytes pushed so far.
func (f *Funnel) Written() int64 { return f.written }

func (f *Funnel) Close() error {
	if f.progress != nil {
		f.progress(f.written, f.total)
	}
	return f.sink.Err()
}
