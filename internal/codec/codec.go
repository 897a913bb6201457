// Package codec implements the codec framing layer of spec.md §4.5: the
// Straw/Funnel stream adapters, the uniform compress/expand dispatch with
// fallback-to-stored, the dual CRC policy, and the pre-sized-copy and
// empty-source special cases.
package codec

import (
	"io"

	"github.com/shrinkit/nufx/internal/byteio"
	"github.com/shrinkit/nufx/internal/datasrc"
	"github.com/shrinkit/nufx/internal/nuerr"
)

// Format is an alias of datasrc.Format: the thread-format enumeration is
// shared between the data-source layer (which may already carry compressed
// bytes) and the codec layer (which produces them).
type Format = datasrc.Format

const (
	FormatStored  = datasrc.FormatStored
	FormatLZW1    = datasrc.FormatLZW1
	FormatLZW2    = datasrc.FormatLZW2
	FormatHuffSQ  = datasrc.FormatHuffSQ
	FormatLZC12   = datasrc.FormatLZC12
	FormatLZC16   = datasrc.FormatLZC16
	FormatDeflate = datasrc.FormatDeflate
	FormatBzip2   = datasrc.FormatBzip2
)

// CompressResult is what every compressor returns: the compressed byte
// count and the CRC over the *uncompressed* input (spec.md §4.5 contract).
type CompressResult struct {
	DstLen int64
	CRC    uint16
}

// Compressor satisfies: compress(straw, sink, srcLen) -> (dstLen, crc). It
// consumes exactly srcLen input bytes and writes compressed output to sink.
type Compressor func(straw *Straw, sink datasrc.Sink, srcLen int64) (CompressResult, error)

// Decompressor satisfies: expand(source, funnel, compLen, expectedUncompLen)
// -> crc. It consumes up to compLen bytes and writes exactly
// expectedUncompLen bytes to funnel, returning the CRC over the
// uncompressed output.
type Decompressor func(straw *Straw, funnel *Funnel, compLen, expectedUncompLen int64) (crc uint16, err error)

type codecEntry struct {
	compress   Compressor
	decompress Decompressor
}

var registry = map[Format]codecEntry{
	FormatStored:  {compressStored, expandStored},
	FormatDeflate: {compressDeflate, expandDeflate},
	FormatBzip2:   {compressBzip2, expandBzip2},
	FormatLZW1:    {compressLZW1, expandLZW1},
	FormatLZW2:    {compressLZW2, expandLZW2},
	FormatHuffSQ:  {compressUnsupported(FormatHuffSQ), expandUnsupported(FormatHuffSQ)},
	FormatLZC12:   {compressUnsupported(FormatLZC12), expandUnsupported(FormatLZC12)},
	FormatLZC16:   {compressUnsupported(FormatLZC16), expandUnsupported(FormatLZC16)},
}

func compressUnsupported(f Format) Compressor {
	return func(*Straw, datasrc.Sink, int64) (CompressResult, error) {
		return CompressResult{}, nuerr.New(nuerr.KindUnsupportedFeature, nil,
			"compressor body for format %v is out of scope (framing only)", f)
	}
}

func expandUnsupported(f Format) Decompressor {
	return func(*Straw, *Funnel, int64, int64) (uint16, error) {
		return 0, nuerr.New(nuerr.KindUnsupportedFeature, nil,
			"decompressor body for format %v is out of scope (framing only)", f)
	}
}

// Lookup returns the compressor/decompressor pair registered for format.
func Lookup(f Format) (Compressor, Decompressor, bool) {
	e, ok := registry[f]
	if !ok {
		return nil, nil, false
	}
	return e.compress, e.decompress, true
}

// CompressOutcome records what CompressDispatch actually did, including
// whether the fallback-to-stored path was taken (spec.md §4.5 "Fallback to
// stored").
type CompressOutcome struct {
	Format  Format
	Result  CompressResult
	Fell    bool // true if fallback-to-stored was used
}

// seekSink is implemented by sinks that support rewinding, needed for the
// fallback-to-stored path.
type seekSink interface {
	Seek(offset int64, whence int) (int64, error)
}

// CompressDispatch implements spec.md §4.5's fallback law: it runs the
// requested compressor and, if the result is not smaller than the input,
// rewinds both straw and sink and re-runs the stored pseudo-codec, reusing
// the already-computed CRC rather than recomputing it.
func CompressDispatch(target Format, straw *Straw, sink datasrc.Sink, srcLen int64) (CompressOutcome, error) {
	if srcLen == 0 {
		// spec.md §4.5 "Empty source": stored, zero length, initial CRC.
		return CompressOutcome{
			Format: FormatStored,
			Result: CompressResult{DstLen: 0, CRC: byteio.InitialThreadCRC},
		}, nil
	}

	compress, _, ok := Lookup(target)
	if !ok {
		return CompressOutcome{}, nuerr.New(nuerr.KindBadFormat, nil, "unknown thread format %v", target)
	}

	startOff, canRewind := sinkOffset(sink)

	result, err := compress(straw, sink, srcLen)
	if err != nil {
		return CompressOutcome{}, err
	}

	if result.DstLen >= srcLen && target != FormatStored {
		if !canRewind {
			return CompressOutcome{}, nuerr.New(nuerr.KindInternal, nil,
				"fallback-to-stored requires a seekable sink")
		}
		ss := sink.(seekSink)
		if _, err := ss.Seek(startOff, io.SeekStart); err != nil {
			return CompressOutcome{}, nuerr.New(nuerr.KindFileSeek, err, "rewind sink for fallback-to-stored")
		}
		if err := straw.Rewind(); err != nil {
			return CompressOutcome{}, err
		}
		storedResult, err := compressStored(straw, sink, srcLen)
		if err != nil {
			return CompressOutcome{}, err
		}
		// Reuse the CRC already computed; spec.md §4.5 says it must not be
		// recomputed.
		storedResult.CRC = result.CRC
		return CompressOutcome{Format: FormatStored, Result: storedResult, Fell: true}, nil
	}

	return CompressOutcome{Format: target, Result: result}, nil
}

func sinkOffset(sink datasrc.Sink) (int64, bool) {
	ss, ok := sink.(seekSink)
	if !ok {
		return 0, false
	}
	off, err := ss.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, false
	}
	return off, true
}

// ExpandDispatch runs the registered decompressor for format, or the empty
// short-circuit when expectedUncompLen is 0.
func ExpandDispatch(format Format, straw *Straw, funnel *Funnel, compLen, expectedUncompLen int64) (uint16, error) {
	if expectedUncompLen == 0 {
		return byteio.InitialThreadCRC, nil
	}
	_, expand, ok := Lookup(format)
	if !ok {
		return 0, nuerr.New(nuerr.KindBadFormat, nil, "unknown thread format %v", format)
	}
	return expand(straw, funnel, compLen, expectedUncompLen)
}
