package nufx

import (
	"github.com/shrinkit/nufx/internal/codec"
	"github.com/shrinkit/nufx/internal/datasrc"
	"github.com/shrinkit/nufx/internal/eol"
)

// ExtractThreadToBuffer decompresses thread's bytes straight out of the
// archive file into an in-memory buffer, applying EOL/high-bit conversion
// per a.Options when the thread looks like text (spec.md §4.8).
func (a *Archive) ExtractThreadToBuffer(thread *Thread) ([]byte, uint16, error) {
	if err := a.enter(); err != nil {
		return nil, 0, err
	}
	defer a.leave()

	if a.Callbacks.SelectionFilter != nil && !a.Callbacks.SelectionFilter(nil, thread) {
		return nil, 0, newErr(KindSkipped, nil, "thread %d excluded by selection filter", thread.ThreadIdx)
	}

	src := datasrc.NewStreamSource(a.f, thread.FileOffset, int64(thread.CompressedEOF), datasrc.Format(thread.Format))
	straw := codec.NewStraw(src, int64(thread.CompressedEOF), a.progressAdapter())
	if err := straw.Prepare(); err != nil {
		return nil, 0, err
	}
	defer straw.Unprepare()

	conv, err := a.detectConverter(thread)
	if err != nil {
		return nil, 0, err
	}

	sink := datasrc.NewBufferSink(0)
	funnel := codec.NewFunnel(sink, conv, int64(thread.UncompressedEOF), a.progressAdapter())

	crc, err := codec.ExpandDispatch(datasrc.Format(thread.Format), straw, funnel, int64(thread.CompressedEOF), int64(thread.UncompressedEOF))
	if err != nil {
		return nil, 0, err
	}
	if err := funnel.Close(); err != nil {
		return nil, 0, err
	}

	if !a.Options.IgnoreCRC && crc != thread.CRC {
		// spec.md §7: CRC mismatches pass through the error handler if one
		// is installed; it may resume (treat as valid), skip (this thread),
		// or abort (propagate the mismatch).
		mismatch := newErr(KindBadThreadCRC, nil, "thread %d CRC mismatch: got %#04x, want %#04x", thread.ThreadIdx, crc, thread.CRC)
		result := CallbackAbort
		if a.Callbacks.ErrorHandler != nil {
			result = a.Callbacks.ErrorHandler(mismatch)
		}
		switch result {
		case CallbackResume:
			// Caller elected to treat the mismatched bytes as valid.
		case CallbackSkip:
			return nil, crc, newErr(KindSkipped, mismatch, "thread %d extraction skipped after CRC mismatch", thread.ThreadIdx)
		default:
			return nil, crc, mismatch
		}
	}
	thread.ActualEOF = uint32(funnel.Written())
	return sink.Bytes(), crc, nil
}

// detectConverter samples the first bytes of a data-class thread to decide
// whether/how to convert EOLs (spec.md §4.8); non-data threads (filename,
// comment) are never converted.
func (a *Archive) detectConverter(thread *Thread) (*eol.Converter, error) {
	if a.Options.ConvertExtractedEOL == ConvertOff || thread.Class != ThreadClassData {
		return nil, nil
	}
	sampleLen := thread.CompressedEOF
	const maxSample = 16 * 1024
	if sampleLen > maxSample {
		sampleLen = maxSample
	}
	if sampleLen == 0 {
		return nil, nil
	}

	sampleSrc := datasrc.NewStreamSource(a.f, thread.FileOffset, int64(sampleLen), datasrc.Format(thread.Format))
	straw := codec.NewStraw(sampleSrc, int64(sampleLen), nil)
	if err := straw.Prepare(); err != nil {
		return nil, err
	}
	sink := datasrc.NewBufferSink(0)
	funnel := codec.NewFunnel(sink, nil, int64(sampleLen), nil)
	if _, err := codec.ExpandDispatch(datasrc.Format(thread.Format), straw, funnel, int64(sampleLen), int64(sampleLen)); err != nil {
		straw.Unprepare()
		return nil, err
	}
	straw.Unprepare()

	detection := eol.Detect(sink.Bytes())
	mode := eol.Mode(a.Options.ConvertExtractedEOL)
	target := eolStyleFromTarget(a.Options.EOLTarget)
	return eol.NewConverter(detection, mode, target, a.Options.StripHighASCII), nil
}

func eolStyleFromTarget(t EOLTarget) eol.EOLStyle {
	switch t {
	case EOLTargetCR:
		return eol.EOLCR
	case EOLTargetCRLF:
		return eol.EOLCRLF
	default:
		return eol.EOLLF
	}
}

// progressAdapter bridges the public ProgressFunc to the codec package's
// internal ProgressFunc type.
func (a *Archive) progressAdapter() codec.ProgressFunc {
	if a.Callbacks.Progress == nil {
		return nil
	}
	return func(done, total int64) bool {
		return a.Callbacks.Progress(done, total)
	}
}
