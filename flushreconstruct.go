package nufx

import (
	"io"
	"sort"

	"github.com/shrinkit/nufx/internal/byteio"
	"github.com/shrinkit/nufx/internal/codec"
	"github.com/shrinkit/nufx/internal/datasrc"
)

// threadPlan is one thread's reconstruction plan: either an existing
// thread copied verbatim, an existing thread overwritten by an Update, or
// a brand-new thread from an Add.
type threadPlan struct {
	base  Thread
	mod   ThreadMod // nil for a plain existing thread
	isAdd bool
	// filenameCache holds a filename-thread add's decoded bytes, captured
	// before the thread body is written, for Record.FilenameFromThread.
	filenameCache string
}

// planRecordThreads applies rec's queued ThreadMods against its existing
// threads, producing the ordered list Step 5 emits (spec.md §4.6 Step 5's
// fixed order: filename, comment, data-fork, disk-image, resource-fork,
// then everything else).
func planRecordThreads(rec *Record) ([]threadPlan, error) {
	deletes := map[uint32]*DeleteMod{}
	updates := map[uint32]*UpdateMod{}
	var adds []*AddMod
	for _, m := range rec.mods {
		switch v := m.(type) {
		case *DeleteMod:
			deletes[v.ThreadIdx] = v
		case *UpdateMod:
			updates[v.ThreadIdx] = v
		case *AddMod:
			adds = append(adds, v)
		}
	}

	var plans []threadPlan
	for i := range rec.Threads {
		t := &rec.Threads[i]
		if dm, ok := deletes[t.ThreadIdx]; ok {
			dm.markUsed()
			t.markUsed()
			continue
		}
		if um, ok := updates[t.ThreadIdx]; ok {
			um.markUsed()
			t.markUsed()
			plans = append(plans, threadPlan{base: *t, mod: um})
			continue
		}
		t.markUsed()
		plans = append(plans, threadPlan{base: *t})
	}
	for _, am := range adds {
		am.markUsed()
		plans = append(plans, threadPlan{
			base: Thread{
				ThreadIdx: am.assignedIdx,
				Class:     am.ThreadClass,
				Kind:      am.ThreadKind,
				Format:    am.TargetFormat,
			},
			mod:   am,
			isAdd: true,
		})
	}

	sort.SliceStable(plans, func(i, j int) bool {
		return threadOrderRank(&plans[i].base) < threadOrderRank(&plans[j].base)
	})

	if len(plans) == 0 {
		return nil, newErr(KindAllDeleted, nil, "record %d has no resulting threads", rec.RecordIdx)
	}
	return plans, nil
}

// emitRecord reserves a header-sized hole in w, writes every planned
// thread's body in fixed order, then backfills the header now that every
// thread's final CRC/EOF is known (spec.md §4.6 Step 5). archiveR is the
// original archive file, used to byte-copy threads that carry no mod; it
// may be nil when rec has no such threads (e.g. every thread in `new` is
// an Add). archiveR is read positionally (io.ReaderAt), not sequentially:
// the in-place flush path calls emitRecord with w and archiveR aliasing
// the same *os.File, and a shared Seek-then-Read/Write cursor would
// corrupt either stream.
func (a *Archive) emitRecord(w io.WriteSeeker, archiveR io.ReaderAt, rec *Record) (Record, error) {
	rec.clearUsed()

	plans, err := planRecordThreads(rec)
	if err != nil {
		return Record{}, err
	}

	hasFilenameThread := false
	for _, p := range plans {
		if p.base.Class == ThreadClassFilename {
			hasFilenameThread = true
			break
		}
	}
	filenameBytes := []byte(rec.HeaderFilename)
	if hasFilenameThread {
		filenameBytes = nil
	}

	headerLen := recordHeaderFixedSize + len(rec.OptionList) + len(rec.ExtraBytes) +
		2 + len(filenameBytes) + threadHeaderSize*len(plans)

	startOff, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return Record{}, newErr(KindFileSeek, err, "get record start offset")
	}
	if _, err := w.Seek(int64(headerLen), io.SeekCurrent); err != nil {
		return Record{}, newErr(KindFileSeek, err, "reserve record header hole")
	}

	finalThreads := make([]Thread, 0, len(plans))
	for i := range plans {
		ft, err := a.emitOneThread(w, archiveR, &plans[i])
		if err != nil {
			return Record{}, err
		}
		finalThreads = append(finalThreads, ft)
		if ft.Class == ThreadClassFilename && plans[i].isAdd {
			rec.FilenameFromThread = plans[i].filenameCache
		}
	}

	// Step 5 post-emission invariant: every queued ThreadMod and every
	// pre-existing thread was accounted for exactly once (spec.md §4.6 Step
	// 5). Checked against rec's still-original Threads/mods, before they're
	// overwritten below.
	if err := rec.verifyUsed(); err != nil {
		return Record{}, err
	}

	for i := range finalThreads {
		if finalThreads[i].Kind == ThreadKindDiskImage {
			if err := fixupDiskImageFields(rec, &finalThreads[i]); err != nil {
				return Record{}, err
			}
		}
	}

	bodyEnd, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return Record{}, newErr(KindFileSeek, err, "get record body end offset")
	}

	rec.Threads = finalThreads
	rec.FileOffset = startOff
	rec.mods = nil
	if hasFilenameThread {
		rec.HeaderFilename = ""
	}

	if _, err := w.Seek(startOff, io.SeekStart); err != nil {
		return Record{}, newErr(KindFileSeek, err, "seek back to record header hole")
	}
	if err := encodeRecordHeader(byteio.NewWriter(w), rec); err != nil {
		return Record{}, err
	}
	if _, err := w.Seek(bodyEnd, io.SeekStart); err != nil {
		return Record{}, newErr(KindFileSeek, err, "seek forward past record body")
	}

	rec.RawHeaderLen = headerLen
	rec.TotalCompressedLen = 0
	for _, t := range rec.Threads {
		rec.TotalCompressedLen += int64(t.CompressedEOF)
	}
	return *rec, nil
}

// emitOneThread writes a single planned thread's body at w's current
// position and returns its finalized metadata.
func (a *Archive) emitOneThread(w io.Writer, archiveR io.ReaderAt, plan *threadPlan) (Thread, error) {
	switch {
	case plan.mod == nil:
		return a.copyThreadVerbatim(w, archiveR, plan.base)
	case plan.isAdd:
		return a.emitAddThread(w, plan)
	default:
		um := plan.mod.(*UpdateMod)
		return a.emitPresizedOverwrite(w, plan.base, um.Source, plan.base.CompressedEOF)
	}
}

// copyThreadVerbatim byte-copies an unmodified existing thread's data from
// the original archive into w, unchanged (spec.md §4.6 Step 5). Reading via
// a SectionReader (ReadAt) rather than Seek+Read keeps this safe when
// archiveR and w alias the same underlying file, as the in-place flush
// path does.
func (a *Archive) copyThreadVerbatim(w io.Writer, archiveR io.ReaderAt, t Thread) (Thread, error) {
	if archiveR == nil {
		return Thread{}, newErr(KindInternal, nil, "thread %d has no mod but no archive to copy from", t.ThreadIdx)
	}
	sr := io.NewSectionReader(archiveR, t.FileOffset, int64(t.CompressedEOF))
	if _, err := io.CopyN(w, sr, int64(t.CompressedEOF)); err != nil {
		return Thread{}, newErr(KindFileRead, err, "copy thread %d verbatim", t.ThreadIdx)
	}
	return t, nil
}

// emitPresizedOverwrite writes source's bytes into a fixed-capacity
// allocation, zero-padding the remainder (spec.md §4.5 "Pre-sized copy").
// capacity is preserved regardless of source length; a source longer than
// capacity fails with KindPresizeOverflow.
func (a *Archive) emitPresizedOverwrite(w io.Writer, base Thread, src datasrc.Source, capacity uint32) (Thread, error) {
	srcLen := src.Len()
	if uint32(srcLen) > capacity {
		return Thread{}, newErr(KindPresizeOverflow, nil, "source of %d bytes overflows pre-sized capacity %d", srcLen, capacity)
	}
	sink := datasrc.NewStreamSink(w)
	straw := codec.NewStraw(src, srcLen, a.progressAdapter())
	if err := straw.Prepare(); err != nil {
		return Thread{}, err
	}
	defer straw.Unprepare()

	outcome, err := codec.CompressDispatch(datasrc.FormatStored, straw, sink, srcLen)
	if err != nil {
		return Thread{}, err
	}
	if pad := int64(capacity) - srcLen; pad > 0 {
		if _, err := sink.PutBlock(make([]byte, pad)); err != nil {
			return Thread{}, newErr(KindFileWrite, err, "zero-pad pre-sized thread")
		}
	}

	base.Format = ThreadFormatStored
	base.CRC = outcome.Result.CRC
	base.UncompressedEOF = uint32(srcLen)
	base.CompressedEOF = capacity
	return base, nil
}

// emitAddThread writes a brand-new thread: a pre-sized copy for filename /
// comment / explicitly pre-sized adds, or the full compression-dispatch
// path otherwise (spec.md §4.6 Step 5 "For each Add").
func (a *Archive) emitAddThread(w io.Writer, plan *threadPlan) (Thread, error) {
	am := plan.mod.(*AddMod)

	if am.ThreadClass == ThreadClassFilename || (am.ThreadClass == ThreadClassMessage && am.ThreadKind == ThreadKindComment) || am.IsPresized {
		capacity := am.PresizeCapacity
		if capacity <= 0 {
			capacity = am.Source.Len()
		}
		if am.ThreadClass == ThreadClassFilename {
			name, err := readAllFromSource(am.Source)
			if err != nil {
				return Thread{}, err
			}
			plan.filenameCache = string(name)
		}
		return a.emitPresizedOverwrite(w, plan.base, am.Source, uint32(capacity))
	}

	srcLen := am.Source.Len()
	straw := codec.NewStraw(am.Source, srcLen, a.progressAdapter())
	if err := straw.Prepare(); err != nil {
		return Thread{}, err
	}
	defer straw.Unprepare()

	sink := datasrc.NewStreamSink(w)
	outcome, err := codec.CompressDispatch(datasrc.Format(am.TargetFormat), straw, sink, srcLen)
	if err != nil {
		return Thread{}, err
	}

	t := plan.base
	t.Format = outcome.Format
	t.CRC = outcome.Result.CRC
	t.UncompressedEOF = uint32(srcLen)
	t.CompressedEOF = uint32(outcome.Result.DstLen)
	return t, nil
}

// fixupDiskImageFields implements spec.md §4.6 Step 7: a disk-image
// thread's record must satisfy storageType × extraType == uncompressedLen.
func fixupDiskImageFields(rec *Record, t *Thread) error {
	length := int64(t.UncompressedEOF)
	if int64(rec.StorageType)*int64(rec.AuxType) == length {
		return nil
	}
	if length%512 == 0 {
		rec.StorageType = 512
		rec.AuxType = uint32(length / 512)
		return nil
	}
	return newErr(KindBadRecord, nil, "disk-image thread length %d disagrees with storageType/extraType and is not a multiple of 512", length)
}

// defaultFilenameCapacity is the pre-sized allocation used when
// synthesizing a filename thread for a new record that has none (spec.md
// §4.6 Step 6).
const defaultFilenameCapacity = 32

// synthesizeFilenameAddIfMissing implements spec.md §4.6 Step 6: "if no
// filename ThreadMod is present, synthesize one from the record's stored
// filename (padded to the default capacity, or to the filename length if
// larger)".
func synthesizeFilenameAddIfMissing(rec *Record) error {
	for _, m := range rec.mods {
		if am, ok := m.(*AddMod); ok && am.ThreadClass == ThreadClassFilename {
			return nil
		}
	}
	name := rec.Filename()
	capacity := int64(defaultFilenameCapacity)
	if int64(len(name)) > capacity {
		capacity = int64(len(name))
	}
	return rec.AddThread(&AddMod{
		ThreadClass:     ThreadClassFilename,
		ThreadKind:      ThreadKindFilename,
		TargetFormat:    ThreadFormatStored,
		Source:          datasrc.NewBufferSource([]byte(name), datasrc.FormatStored),
		IsPresized:      true,
		PresizeCapacity: capacity,
	})
}

// copyRecordVerbatim byte-copies rec's header and every thread's data from
// the original archive to w unchanged, adjusting FileOffset fields for the
// new position (spec.md §4.6 Step 4 rebuild path: "byte-copied verbatim
// (no ThreadMods, no dirty header)"). Reading via a SectionReader keeps
// this safe even when archiveR and w alias the same file.
func copyRecordVerbatim(w io.Writer, archiveR io.ReaderAt, rec Record, newStart int64) (Record, error) {
	total := int64(rec.RawHeaderLen)
	for _, t := range rec.Threads {
		total += int64(t.CompressedEOF)
	}
	sr := io.NewSectionReader(archiveR, rec.FileOffset, total)
	if _, err := io.CopyN(w, sr, total); err != nil {
		return Record{}, newErr(KindFileRead, err, "copy record %d verbatim", rec.RecordIdx)
	}
	delta := newStart - rec.FileOffset
	rec.FileOffset = newStart
	for i := range rec.Threads {
		rec.Threads[i].FileOffset += delta
	}
	return rec, nil
}

// readAllFromSource drains src fully, used to capture a filename add's
// bytes for Record.FilenameFromThread bookkeeping (spec.md §3).
func readAllFromSource(src datasrc.Source) ([]byte, error) {
	if err := src.PrepareInput(); err != nil {
		return nil, err
	}
	defer src.UnprepareInput()
	var out []byte
	buf := make([]byte, 512)
	for {
		n, err := src.GetBlock(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
