package nufx

import (
	"errors"
	"io"
	"os"

	"github.com/google/renameio"
	"github.com/shrinkit/nufx/internal/byteio"
)

// flushRebuild implements spec.md §4.6 Step 4's rebuild path: a temp file
// is built from scratch (wrapper copied forward, master header
// reconstructed, every record byte-copied or reconstructed), then renamed
// atomically over the original.
func (a *Archive) flushRebuild() (FlushResult, error) {
	temp, err := renameio.TempFile("", a.path)
	if err != nil {
		return FlushResult{}, newErr(KindFileOpen, err, "create rebuild temp file")
	}
	keepTemp := false // set on rename failure so TempPath still names a file
	defer func() {
		if !keepTemp {
			temp.Cleanup()
		}
	}()

	wrapperLen := int64(0)
	if a.wrapperOffset > 0 && !a.Options.DiscardWrapper {
		if _, err := a.f.Seek(0, io.SeekStart); err != nil {
			return FlushResult{}, newErr(KindFileSeek, err, "seek to wrapper")
		}
		if _, err := io.CopyN(temp, a.f, a.wrapperOffset); err != nil {
			return FlushResult{}, newErr(KindFileRead, err, "copy wrapper forward")
		}
		wrapperLen = a.wrapperOffset
	}

	masterHeaderPos := wrapperLen
	if _, err := temp.Seek(masterHeaderPos+masterHeaderSize, io.SeekStart); err != nil {
		return FlushResult{}, newErr(KindFileSeek, err, "reserve master header hole")
	}

	finalRecords := make([]Record, 0, a.copy.Count()+a.new.Count())

	for i := 0; i < a.copy.Count(); i++ {
		rec := *a.copy.At(i)
		newStart, err := temp.Seek(0, io.SeekCurrent)
		if err != nil {
			return FlushResult{}, newErr(KindFileSeek, err, "get record offset")
		}
		var out Record
		if !rec.HasMods() && !rec.IsDirty() {
			out, err = copyRecordVerbatim(temp, a.f, rec, newStart)
		} else {
			out, err = a.emitRecord(temp, a.f, &rec)
		}
		if err != nil {
			if skipped, ok := asSkipped(err); ok {
				_ = skipped
				restored := a.orig.FindByRecordIndex(rec.RecordIdx)
				if restored == nil {
					continue
				}
				if _, seekErr := temp.Seek(newStart, io.SeekStart); seekErr != nil {
					return FlushResult{}, newErr(KindFileSeek, seekErr, "rewind for skipped-record recovery")
				}
				out, err = copyRecordVerbatim(temp, a.f, *restored, newStart)
				if err != nil {
					return FlushResult{}, err
				}
			} else {
				return FlushResult{Status: FlushAborted}, err
			}
		}
		finalRecords = append(finalRecords, out)
	}

	for i := 0; i < a.new.Count(); i++ {
		rec := *a.new.At(i)
		if err := synthesizeFilenameAddIfMissing(&rec); err != nil {
			return FlushResult{}, err
		}
		out, err := a.emitRecord(temp, nil, &rec)
		if err != nil {
			if _, ok := asSkipped(err); ok {
				continue
			}
			return FlushResult{Status: FlushAborted}, err
		}
		finalRecords = append(finalRecords, out)
	}

	finalEOF, err := temp.Seek(0, io.SeekCurrent)
	if err != nil {
		return FlushResult{}, newErr(KindFileSeek, err, "get final EOF")
	}
	// A fallback-to-stored rewind of the last thread can leave the longer
	// compressed attempt past finalEOF; drop it.
	if err := temp.Truncate(finalEOF); err != nil {
		return FlushResult{}, newErr(KindFileWrite, err, "truncate rebuilt archive to %d bytes", finalEOF)
	}

	now := nowDateTime()
	created := a.Header.Created
	if a.Header.MasterEOF == 0 && a.Header.TotalRecords == 0 {
		// Archive has never been flushed before (spec.md §4.3 "Created is
		// set once, at the archive's first flush").
		created = now
	}
	header := MasterHeader{
		TotalRecords: uint32(len(finalRecords)),
		Created:      created,
		Modified:     now,
		// spec.md §8 "Master-EOF equality": stored master-EOF is the file
		// length minus the wrapper offset.
		MasterEOF: uint32(finalEOF - wrapperLen),
		Version:   supportedMasterVersion,
	}

	if _, err := temp.Seek(masterHeaderPos, io.SeekStart); err != nil {
		return FlushResult{}, newErr(KindFileSeek, err, "seek back to master header")
	}
	if err := encodeMasterHeader(byteio.NewWriter(temp), header); err != nil {
		return FlushResult{}, err
	}

	if err := temp.CloseAtomicallyReplace(); err != nil {
		keepTemp = true
		return FlushResult{
			Status:   FlushAborted,
			TempPath: temp.Name(),
		}, newErr(KindRename, err, "rename rebuild temp file over %q", a.path)
	}

	if err := a.f.Close(); err != nil {
		return FlushResult{}, newErr(KindFileClose, err, "close previous archive handle")
	}
	f, err := os.OpenFile(a.path, os.O_RDWR, 0)
	if err != nil {
		a.readOnly = true
		return FlushResult{}, newErr(KindFileOpen, err, "reopen rebuilt archive")
	}
	a.f = f
	a.wrapperOffset = wrapperLen
	a.Header = header

	a.orig.Reset()
	for _, r := range finalRecords {
		a.orig.Append(r)
	}
	a.orig.MarkLoaded()
	a.copy.Reset()
	a.new.Reset()

	return FlushResult{Status: FlushSucceeded}, nil
}

// asSkipped reports whether err is (or wraps) a KindSkipped error, per
// spec.md §4.6 "Skipped record" failure semantics.
func asSkipped(err error) (*Error, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if ne, ok := e.(*Error); ok && ne.Kind == KindSkipped {
			return ne, true
		}
	}
	return nil, false
}
