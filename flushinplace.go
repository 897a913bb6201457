package nufx

import (
	"io"

	"github.com/shrinkit/nufx/internal/byteio"
)

// flushInPlace implements spec.md §4.6 Step 4's in-place path: eligible
// records (Update-only mods, or untouched) are rewritten at their existing
// file offsets, new records are appended at EOF, and only the master
// header and the trailing region change size.
func (a *Archive) flushInPlace() (FlushResult, error) {
	finalRecords := make([]Record, 0, a.orig.Count()+a.new.Count())

	if a.copy.Loaded() {
		for i := 0; i < a.copy.Count(); i++ {
			rec := *a.copy.At(i)
			if !rec.HasMods() && !rec.IsDirty() {
				finalRecords = append(finalRecords, rec)
				continue
			}
			if _, err := a.f.Seek(rec.FileOffset, io.SeekStart); err != nil {
				return FlushResult{}, newErr(KindFileSeek, err, "seek to record %d", rec.RecordIdx)
			}
			out, err := a.emitRecord(a.f, a.f, &rec)
			if err != nil {
				if _, ok := asSkipped(err); ok {
					restored := a.orig.FindByRecordIndex(rec.RecordIdx)
					if restored == nil {
						continue
					}
					finalRecords = append(finalRecords, *restored)
					continue
				}
				a.readOnly = true
				return FlushResult{Status: FlushAborted}, err
			}
			finalRecords = append(finalRecords, out)
		}
	} else {
		finalRecords = append(finalRecords, a.orig.All()...)
	}

	if a.new.Count() > 0 {
		end, err := a.f.Seek(0, io.SeekEnd)
		if err != nil {
			return FlushResult{}, newErr(KindFileSeek, err, "seek to EOF for new records")
		}
		// A freshly created archive has no master header on disk yet: leave
		// room for it so the header written below does not overlay a record.
		if minEnd := a.wrapperOffset + masterHeaderSize; end < minEnd {
			if _, err := a.f.Seek(minEnd, io.SeekStart); err != nil {
				return FlushResult{}, newErr(KindFileSeek, err, "reserve master header area")
			}
		}
		for i := 0; i < a.new.Count(); i++ {
			rec := *a.new.At(i)
			if err := synthesizeFilenameAddIfMissing(&rec); err != nil {
				return FlushResult{}, err
			}
			out, err := a.emitRecord(a.f, nil, &rec)
			if err != nil {
				if _, ok := asSkipped(err); ok {
					continue
				}
				a.readOnly = true
				return FlushResult{Status: FlushAborted}, err
			}
			finalRecords = append(finalRecords, out)
		}
	}

	finalEOF, err := a.f.Seek(0, io.SeekEnd)
	if err != nil {
		return FlushResult{}, newErr(KindFileSeek, err, "get final EOF")
	}
	if err := truncateTo(a.f, finalEOF); err != nil {
		return FlushResult{}, err
	}

	now := nowDateTime()
	header := a.Header
	if header.MasterEOF == 0 && header.TotalRecords == 0 {
		// Archive has never been flushed before (spec.md §4.3 "Created is
		// set once, at the archive's first flush").
		header.Created = now
	}
	header.TotalRecords = uint32(len(finalRecords))
	header.Modified = now
	header.MasterEOF = uint32(finalEOF - a.wrapperOffset)
	header.Version = supportedMasterVersion

	if _, err := a.f.Seek(a.wrapperOffset, io.SeekStart); err != nil {
		return FlushResult{}, newErr(KindFileSeek, err, "seek to master header")
	}
	if err := encodeMasterHeader(byteio.NewWriter(a.f), header); err != nil {
		return FlushResult{}, err
	}
	if err := a.f.Sync(); err != nil {
		return FlushResult{}, newErr(KindFileWrite, err, "sync archive after in-place flush")
	}
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
