package nufx

import (
	"io"

	"github.com/shrinkit/nufx/internal/byteio"
	"github.com/shrinkit/nufx/internal/wrapper"
)

// wrapperKind mirrors internal/wrapper.Kind, re-declared here so archive.go
// doesn't need to import the internal package just for a field type.
type wrapperKind int

const (
	wrapperNone           wrapperKind = wrapperKind(wrapper.KindNone)
	wrapperBinaryII       wrapperKind = wrapperKind(wrapper.KindBinaryII)
	wrapperSelfExtracting wrapperKind = wrapperKind(wrapper.KindSelfExtracting)
)

// probeHeaderSize bounds how many leading bytes are read to detect a
// wrapper and locate the master header (spec.md §4.3, the junk-skip-max
// tunable plus the largest wrapper block size). It must reach past
// wrapper.SEAMasterHeaderOffset so a Self-Extracting wrapper's fixed-offset
// magic is visible to wrapper.Detect.
func probeHeaderSize(junkSkipMax int) int {
	if junkSkipMax <= 0 {
		junkSkipMax = 2048
	}
	size := junkSkipMax + 128
	if min := wrapper.SEAMasterHeaderOffset + 128; size < min {
		size = min
	}
	return size
}

// readTOC detects any wrapper, parses the master header, and builds the
// table of contents by reading every record header and its thread-header
// array in order (spec.md §4.3). Thread-data offsets are derived by
// accumulation as each thread's data is skipped (or, for a filename
// thread, read immediately to populate Record.FilenameFromThread).
func (a *Archive) readTOC() error {
	probe := make([]byte, probeHeaderSize(a.Options.JunkSkipMax))
	n, err := a.f.ReadAt(probe, 0)
	if err != nil && err != io.EOF {
		return newErr(KindFileRead, err, "probe archive header")
	}
	probe = probe[:n]

	kind, offset, err := wrapper.Detect(probe, a.Options.JunkSkipMax)
	if err != nil {
		return err
	}
	a.wrapperKind = wrapperKind(kind)
	a.wrapperOffset = offset

	if _, err := a.f.Seek(a.wrapperOffset, io.SeekStart); err != nil {
		return newErr(KindFileSeek, err, "seek past wrapper to master header")
	}

	r := byteio.NewReader(a.f, a.mode == ModeStreamingRead)

	header, err := decodeMasterHeader(r, a.Options.IgnoreCRC)
	if err != nil {
		return err
	}
	a.Header = header

	for i := uint32(0); i < header.TotalRecords; i++ {
		rec, err := decodeRecordHeader(r, a.Options.IgnoreCRC)
		if err != nil {
			return err
		}
		rec.RecordIdx = a.nextRecordIdx()
		rec.FileOffset += a.wrapperOffset

		for ti := range rec.Threads {
			t := &rec.Threads[ti]
			t.FileOffset = a.wrapperOffset + r.Pos()

			if t.Class == ThreadClassFilename && t.Format == ThreadFormatStored {
				name, err := r.ReadBytes(int(t.CompressedEOF))
				if err != nil {
					return err
				}
				nlen := int(t.UncompressedEOF)
				if nlen > len(name) {
					nlen = len(name)
				}
				rec.FilenameFromThread = string(name[:nlen])
				continue
			}
			if err := r.SeekForward(int64(t.CompressedEOF)); err != nil {
				return err
			}
		}
		rec.nextThreadIdx = uint32(len(rec.Threads))
		a.orig.Append(rec)
	}
	return nil
}
