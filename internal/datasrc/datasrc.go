// Package datasrc implements the uniform source/sink views (spec.md §4.7)
// over file paths, open byte streams at an offset, and in-memory buffers,
// used by the codec framing layer (internal/codec) as the producer/consumer
// ends of a compression or decompression run.
package datasrc

import (
	"io"
	"os"
	"time"

	"github.com/orcaman/writerseeker"
	"github.com/shrinkit/nufx/internal/nuerr"
)

// Format identifies the format bytes already carry, so an already-compressed
// source can be passed through verbatim (spec.md §3 "Data source / data
// sink").
type Format uint16

const (
	FormatUnknown Format = iota
	FormatStored
	FormatLZW1
	FormatLZW2
	FormatHuffSQ
	FormatLZC12
	FormatLZC16
	FormatDeflate
	FormatBzip2
)

// Source is a read-only view over a producer of bytes: a file path, an
// open stream at a declared offset, or a memory buffer. Sources carry no
// reference count.
type Source interface {
	// Len is the declared length of the source's content.
	Len() int64
	// OtherLen is used for pre-sized allocation (spec.md §3); 0 if unset.
	OtherLen() int64
	// Format is the format already borne by the bytes, so the engine can
	// skip recompression when it already matches the target.
	Format() Format
	// CRC is a carried-forward CRC, if the caller already computed one.
	CRC() (uint16, bool)

	// PrepareInput opens a file source, seeks a stream source to its
	// recorded offset, or resets a buffer source's cursor.
	PrepareInput() error
	// UnprepareInput closes a file source's descriptor to bound the number
	// of simultaneously open files (spec.md §4.7, §5 "Resource lifecycle").
	UnprepareInput() error
	// GetBlock reads up to len(p) bytes, like io.Reader.
	GetBlock(p []byte) (int, error)
	// Rewind resets the read cursor to the beginning without closing.
	Rewind() error
}

// Sink is a single-writer view over a consumer of bytes: a file path, an
// open stream, or a memory buffer.
type Sink interface {
	// PutBlock writes p, like io.Writer, but never returns a transient
	// error — failures stick (see Err) to mimic buffered-stream semantics
	// (spec.md §4.7).
	PutBlock(p []byte) (int, error)
	// Err returns a sticky error once one has been set.
	Err() error
	Close() error
}

// FileSource reads from a path, opening the file lazily in PrepareInput and
// closing it in UnprepareInput so open-fd pressure stays O(1) regardless of
// record count (spec.md §5 "Resource lifecycle").
type FileSource struct {
	Path         string
	ResourceFork bool // capability probe delegated to the host; unused here
	length       int64
	otherLen     int64
	format       Format
	crc          uint16
	hasCRC       bool

	f *os.File
}

func NewFileSource(path string, length int64, format Format) *FileSource {
	return &FileSource{Path: path, length: length, format: format}
}

func (s *FileSource) Len() int64        { return s.length }
func (s *FileSource) OtherLen() int64   { return s.otherLen }
func (s *FileSource) Format() Format    { return s.format }
func (s *FileSource) CRC() (uint16, bool) { return s.crc, s.hasCRC }

// SetOtherLen records the pre-sized allocation length for a filename or
// comment add.
func (s *FileSource) SetOtherLen(n int64) { s.otherLen = n }

// SetCarryForwardCRC records a CRC the caller already computed for these
// bytes, so the compressor need not recompute it.
func (s *FileSource) SetCarryForwardCRC(crc uint16) {
	s.crc, s.hasCRC = crc, true
}

// ModTime reports the source file's on-disk modification time, used to
// implement the "only-update-older" tunable (spec.md §6). The second
// return value is false if the file cannot be stat'd.
func (s *FileSource) ModTime() (time.Time, bool) {
	fi, err := os.Stat(s.Path)
	if err != nil {
		return time.Time{}, false
	}
	return fi.ModTime(), true
}

func (s *FileSource) PrepareInput() error {
	f, err := os.Open(s.Path)
	if err != nil {
		return nuerr.New(nuerr.KindFileOpen, err, "open source %q", s.Path)
	}
	s.f = f
	return nil
}

func (s *FileSource) UnprepareInput() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	if err != nil {
		return nuerr.New(nuerr.KindFileClose, err, "close source %q", s.Path)
	}
	return nil
}

func (s *FileSource) GetBlock(p []byte) (int, error) {
	if s.f == nil {
		return 0, nuerr.New(nuerr.KindUsage, nil, "GetBlock before PrepareInput")
	}
	return s.f.Read(p)
}

func (s *FileSource) Rewind() error {
	if s.f == nil {
		return nuerr.New(nuerr.KindUsage, nil, "Rewind before PrepareInput")
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return nuerr.New(nuerr.KindFileSeek, err, "rewind source %q", s.Path)
	}
	return nil
}

// StreamSource reads from an already-open stream starting at a fixed
// offset — used when re-reading an existing thread's bytes directly out of
// the archive file during a flush.
type StreamSource struct {
	R        io.ReadSeeker
	Offset   int64
	length   int64
	otherLen int64
	format   Format
	crc      uint16
	hasCRC   bool
}

func NewStreamSource(r io.ReadSeeker, offset, length int64, format Format) *StreamSource {
	return &StreamSource{R: r, Offset: offset, length: length, format: format}
}

func (s *StreamSource) Len() int64          { return s.length }
func (s *StreamSource) OtherLen() int64     { return s.otherLen }
func (s *StreamSource) Format() Format      { return s.format }
func (s *StreamSource) CRC() (uint16, bool) { return s.crc, s.hasCRC }
func (s *StreamSource) SetOtherLen(n int64) { s.otherLen = n }
func (s *StreamSource) SetCarryForwardCRC(crc uint16) {
	s.crc, s.hasCRC = crc, true
}

func (s *StreamSource) PrepareInput() error {
	if _, err := s.R.Seek(s.Offset, io.SeekStart); err != nil {
		return nuerr.New(nuerr.KindFileSeek, err, "seek stream source to offset %d", s.Offset)
	}
	return nil
}

func (s *StreamSource) UnprepareInput() error { return nil }

func (s *StreamSource) GetBlock(p []byte) (int, error) { return s.R.Read(p) }

func (s *StreamSource) Rewind() error {
	if _, err := s.R.Seek(s.Offset, io.SeekStart); err != nil {
		return nuerr.New(nuerr.KindFileSeek, err, "rewind stream source")
	}
	return nil
}

// BufferSource reads from an in-memory byte slice.
type BufferSource struct {
	Data     []byte
	pos      int
	otherLen int64
	format   Format
	crc      uint16
	hasCRC   bool
}

func NewBufferSource(data []byte, format Format) *BufferSource {
	return &BufferSource{Data: data, format: format}
}

func (s *BufferSource) Len() int64          { return int64(len(s.Data)) }
func (s *BufferSource) OtherLen() int64     { return s.otherLen }
func (s *BufferSource) Format() Format      { return s.format }
func (s *BufferSource) CRC() (uint16, bool) { return s.crc, s.hasCRC }
func (s *BufferSource) SetOtherLen(n int64) { s.otherLen = n }
func (s *BufferSource) SetCarryForwardCRC(crc uint16) {
	s.crc, s.hasCRC = crc, true
}

func (s *BufferSource) PrepareInput() error   { s.pos = 0; return nil }
func (s *BufferSource) UnprepareInput() error { return nil }

func (s *BufferSource) GetBlock(p []byte) (int, error) {
	if s.pos >= len(s.Data) {
		return 0, io.EOF
	}
	n := copy(p, s.Data[s.pos:])
	s.pos += n
	return n, nil
}

func (s *BufferSource) Rewind() error { s.pos = 0; return nil }

// FileSink writes to a path.
type FileSink struct {
	f   *os.File
	err error
}

func NewFileSink(f *os.File) *FileSink { return &FileSink{f: f} }

func (s *FileSink) PutBlock(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.f.Write(p)
	if err != nil {
		s.err = nuerr.New(nuerr.KindFileWrite, err, "write sink")
	}
	return n, s.err
}

func (s *FileSink) Err() error { return s.err }
func (s *FileSink) Close() error {
	if err := s.f.Close(); err != nil {
		return nuerr.New(nuerr.KindFileClose, err, "close sink")
	}
	return nil
}

// StreamSink writes to an already-open stream (e.g. the archive or temp
// file at its current position).
type StreamSink struct {
	W   io.Writer
	err error
}

func NewStreamSink(w io.Writer) *StreamSink { return &StreamSink{W: w} }

func (s *StreamSink) PutBlock(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.W.Write(p)
	if err != nil {
		s.err = nuerr.New(nuerr.KindFileWrite, err, "write sink")
	}
	return n, s.err
}

func (s *StreamSink) Err() error  { return s.err }
func (s *StreamSink) Close() error { return nil }

// Seek delegates to the underlying writer when it is also an io.Seeker
// (e.g. the temp file during a flush), letting StreamSink satisfy the
// fallback-to-stored rewind contract (spec.md §4.5) without a distinct
// sink type for direct-to-file compression.
func (s *StreamSink) Seek(offset int64, whence int) (int64, error) {
	seeker, ok := s.W.(io.Seeker)
	if !ok {
		return 0, nuerr.New(nuerr.KindFileSeek, nil, "underlying stream sink writer is not seekable")
	}
	return seeker.Seek(offset, whence)
}

// BufferSink writes into a growing in-memory buffer. It is backed by
// writerseeker.WriterSeeker, the teacher's own choice (cmd/distri/initrd.go)
// for building an archive body in memory before it is known whether the
// final bytes will be compressed-and-kept or rewound-and-replaced by the
// fallback-to-stored path (spec.md §4.5) — codec.CompressDispatch's rewind
// needs exactly this "write growing bytes but be able to seek back"
// capability, which a plain bytes.Buffer does not offer.
type BufferSink struct {
	ws       *writerseeker.WriterSeeker
	capacity int64 // 0 means unbounded
	written  int64
	err      error
}

// NewBufferSink creates a sink with an optional capacity; capacity <= 0
// means unbounded. Exceeding a set capacity sets the sticky "buffer
// overrun" error without writing, per spec.md §4.7.
func NewBufferSink(capacity int64) *BufferSink {
	return &BufferSink{ws: writerseeker.NewWriterSeeker(), capacity: capacity}
}

func (s *BufferSink) PutBlock(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.capacity > 0 && s.written+int64(len(p)) > s.capacity {
		s.err = nuerr.New(nuerr.KindBufferOverrun, nil, "buffer sink overrun: capacity %d", s.capacity)
		return 0, s.err
	}
	n, err := s.ws.Write(p)
	s.written += int64(n)
	if err != nil {
		s.err = nuerr.New(nuerr.KindFileWrite, err, "write buffer sink")
	}
	return n, s.err
}

// Seek exposes the underlying WriterSeeker's Seek, used by the
// fallback-to-stored path to rewind the output before re-running the
// stored pseudo-codec (spec.md §4.5).
func (s *BufferSink) Seek(offset int64, whence int) (int64, error) {
	return s.ws.Seek(offset, whence)
}

func (s *BufferSink) Bytes() []byte {
	r := s.ws.BytesReader()
	b, _ := io.ReadAll(r)
	return b
}

func (s *BufferSink) Err() error   { return s.err }
func (s *BufferSink) Close() error { return nil }
