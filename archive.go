package nufx

import (
	"fmt"
	"os"
	"time"
)

// OpenMode is the variant an Archive handle was opened in (spec.md §3).
type OpenMode int

const (
	// ModeStreamingRead is a read-only, non-seekable source: extraction
	// only, no modification.
	ModeStreamingRead OpenMode = iota
	// ModeReadOnly is a seekable, read-only source.
	ModeReadOnly
	// ModeReadWrite permits queued modifications and Flush.
	ModeReadWrite
)

// Archive is a process-level handle over a NuFX archive (spec.md §3).
type Archive struct {
	mode OpenMode
	path string

	f *os.File

	// wrapperOffset is the byte offset of the master header past any
	// detected Binary II / Self-Extracting wrapper (0 if none).
	wrapperOffset int64
	wrapperKind   wrapperKind

	Header MasterHeader

	orig RecordSet
	copy RecordSet
	new  RecordSet

	tempFile *os.File
	tempPath string

	recordIdxSeed uint32
	threadIdxSeed uint32

	Options   Options
	Callbacks Callbacks

	busy bool

	// readOnly is latched after a rename failure or in-place damage leaves
	// the handle unsafe to write to again (spec.md §4.6 "Failure semantics
	// of the flush").
	readOnly bool

	// scratch is the shared ~32KiB general compression buffer lazily
	// allocated once per handle and reused across operations (spec.md §5
	// "Shared resource policy").
	scratch []byte
}

// scratchBufSize matches the original engine's general compression buffer
// (spec.md §5: "≈ 32 KiB").
const scratchBufSize = 32 * 1024

// scratchBuffer returns the archive's lazily-allocated shared scratch
// buffer, allocating it on first use.
func (a *Archive) scratchBuffer() []byte {
	if a.scratch == nil {
		a.scratch = make([]byte, scratchBufSize)
	}
	return a.scratch
}

// enter marks the handle busy for the duration of one API call, failing
// re-entrant calls per spec.md §5 "Shared resource policy".
func (a *Archive) enter() error {
	if a.busy {
		return newErr(KindBusy, nil, "archive handle is already busy")
	}
	a.busy = true
	return nil
}

func (a *Archive) leave() { a.busy = false }

// Create makes a fresh, empty read-write archive at path, truncating any
// existing file (spec.md §3, §4.3).
func Create(path string, opts Options) (*Archive, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, newErr(KindFileOpen, err, "create archive %q", path)
	}
	a := &Archive{
		mode:    ModeReadWrite,
		path:    path,
		f:       f,
		Options: opts,
	}
	a.new.MarkLoaded()
	return a, nil
}

// Open opens an existing archive for reading (and, if mode is
// ModeReadWrite, modification). Every mode opens the archive by path;
// there is no entry point that takes a caller-supplied io.Reader, so
// ModeStreamingRead also reads from a regular file.
func Open(path string, mode OpenMode, opts Options) (*Archive, error) {
	flag := os.O_RDONLY
	if mode == ModeReadWrite {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, newErr(KindFileOpen, err, "open archive %q", path)
	}
	a := &Archive{
		mode:    mode,
		path:    path,
		f:       f,
		Options: opts,
	}
	if err := a.readTOC(); err != nil {
		f.Close()
		return nil, err
	}
	a.orig.MarkLoaded()
	if mode == ModeReadWrite {
		a.copy = *a.orig.Clone()
	}
	return a, nil
}

// Close releases the archive's file handles. Any queued but unflushed
// modifications are discarded.
func (a *Archive) Close() error {
	if err := a.enter(); err != nil {
		return err
	}
	defer a.leave()

	var firstErr error
	if a.tempFile != nil {
		if err := a.tempFile.Close(); err != nil && firstErr == nil {
			firstErr = newErr(KindFileClose, err, "close temp file")
		}
		os.Remove(a.tempPath)
	}
	if a.f != nil {
		if err := a.f.Close(); err != nil && firstErr == nil {
			firstErr = newErr(KindFileClose, err, "close archive")
		}
	}
	return firstErr
}

// nextRecordIdx returns a fresh, process-unique record index.
func (a *Archive) nextRecordIdx() uint32 {
	idx := a.recordIdxSeed
	a.recordIdxSeed++
	return idx
}

// AddRecord allocates a new record in the `new` set, returning a pointer
// the caller uses to queue Add ThreadMods (spec.md §3 "Lifecycle": "A
// record is created when it is read from the archive into orig or
// allocated into new").
//
// When AllowDuplicates is false and a record of the same name already
// exists, HandleExisting (spec.md §6) decides the outcome: reject
// (never-overwrite, the default), delete the existing record and proceed
// (always), add under a disambiguated name (rename), or ask the installed
// ErrorHandler (ask-via-callback).
func (a *Archive) AddRecord(rec Record) (*Record, error) {
	if a.mode != ModeReadWrite {
		return nil, newErr(KindArchiveReadOnly, nil, "add record requires a read-write archive")
	}
	if a.readOnly {
		return nil, newErr(KindArchiveReadOnly, nil, "archive handle is latched read-only after a prior failure")
	}
	if !a.Options.AllowDuplicates {
		if existing := a.findRecordByName(rec.Filename()); existing != nil {
			if err := a.resolveExisting(existing, &rec); err != nil {
				return nil, err
			}
		}
	}
	rec.RecordIdx = a.nextRecordIdx()
	a.new.Append(rec)
	return a.new.At(a.new.Count() - 1), nil
}

// findRecordByName returns the first record visible to the caller (in
// copy, then new) whose Filename matches, or nil.
func (a *Archive) findRecordByName(name string) *Record {
	for i := 0; i < a.copy.Count(); i++ {
		if a.copy.At(i).Filename() == name {
			return a.copy.At(i)
		}
	}
	for i := 0; i < a.new.Count(); i++ {
		if a.new.At(i).Filename() == name {
			return a.new.At(i)
		}
	}
	return nil
}

// resolveExisting implements HandleExisting (spec.md §6) once a name
// collision has been found: it may mutate incoming to carry a
// disambiguated name (rename) or queue deletion of every thread in
// existing so the next flush purges it (always, per spec.md §4.6 Step 2),
// and returns an error for never-overwrite or a rejected ask-via-callback.
func (a *Archive) resolveExisting(existing *Record, incoming *Record) error {
	switch a.Options.HandleExisting {
	case HandleNeverOverwrite:
		return newErr(KindRecordExists, nil, "record %q already exists", incoming.Filename())
	case HandleRename:
		incoming.FilenameFromThread = a.uniqueName(incoming.Filename())
		incoming.HeaderFilename = ""
		return nil
	case HandleAlways:
		return deleteAllThreads(existing)
	case HandleAskViaCallback:
		if a.Callbacks.ErrorHandler == nil {
			return newErr(KindRecordExists, nil, "record %q already exists", incoming.Filename())
		}
		cause := newErr(KindRecordExists, nil, "record %q already exists", incoming.Filename())
		switch a.Callbacks.ErrorHandler(cause) {
		case CallbackResume:
			return deleteAllThreads(existing)
		case CallbackSkip:
			return newErr(KindSkipped, nil, "add of %q skipped by error handler", incoming.Filename())
		default:
			return newErr(KindAborted, nil, "add of %q aborted by error handler", incoming.Filename())
		}
	default:
		return newErr(KindRecordExists, nil, "record %q already exists", incoming.Filename())
	}
}

// uniqueName appends successive "~n" suffixes until no visible record
// carries the resulting name (HandleRename, spec.md §6).
func (a *Archive) uniqueName(name string) string {
	candidate := name
	for n := 1; a.findRecordByName(candidate) != nil; n++ {
		candidate = fmt.Sprintf("%s~%d", name, n)
	}
	return candidate
}

// deleteAllThreads drops any Adds queued on r and queues a Delete for every
// thread in r, so the next flush's empty-record purge (spec.md §4.6 Step 2)
// removes it entirely — HandleAlways overwrites by displacing the old
// record rather than mutating it in place.
func deleteAllThreads(r *Record) error {
	kept := make([]ThreadMod, 0, len(r.mods))
	for _, m := range r.mods {
		if _, isAdd := m.(*AddMod); !isAdd {
			kept = append(kept, m)
		}
	}
	r.mods = kept
	for _, t := range r.Threads {
		if err := r.DeleteThread(&DeleteMod{ThreadIdx: t.ThreadIdx}); err != nil {
			return err
		}
	}
	return nil
}

// modTimeSource is implemented by data sources that can report a host
// modification time, used to enforce OnlyUpdateOlder (spec.md §6
// "only-update-older").
type modTimeSource interface {
	ModTime() (time.Time, bool)
}

// AddThread queues m against rec, defaulting an unspecified TargetFormat
// to Options.DataCompression (spec.md §6 "data-compression") before
// delegating to Record.AddThread.
func (a *Archive) AddThread(rec *Record, m *AddMod) error {
	if m.TargetFormat == ThreadFormatUnknown {
		m.TargetFormat = a.Options.DataCompression
	}
	return rec.AddThread(m)
}

// UpdateThread queues m against rec, enforcing OnlyUpdateOlder (spec.md
// §6): if set, and m.Source reports a modification time no newer than the
// target thread's own recorded Modified time, the update is rejected
// before delegating to Record.UpdateThread.
func (a *Archive) UpdateThread(rec *Record, m *UpdateMod) error {
	if a.Options.OnlyUpdateOlder {
		if mts, ok := m.Source.(modTimeSource); ok {
			if srcTime, known := mts.ModTime(); known {
				if !srcTime.After(rec.Modified.ToTime()) {
					return newErr(KindNotNewer, nil, "update source for thread %d is not newer than the target", m.ThreadIdx)
				}
			}
		}
	}
	return rec.UpdateThread(m)
}

// recordsView returns every record currently visible to the caller: orig
// (or copy, once materialized) plus new.
func (a *Archive) recordsView() []Record {
	var out []Record
	if a.copy.Loaded() {
		out = append(out, a.copy.All()...)
	} else {
		out = append(out, a.orig.All()...)
	}
	out = append(out, a.new.All()...)
	return out
}

// Records returns every record currently visible to the caller, honoring
// mask-dataless and, if installed, the SelectionFilter callback (spec.md
// §6). SelectionFilter is invoked per record with a nil thread, matching
// the per-thread call made from ExtractThreadToBuffer.
func (a *Archive) Records() []Record {
	all := a.recordsView()
	if !a.Options.MaskDataless && a.Callbacks.SelectionFilter == nil {
		return all
	}
	out := make([]Record, 0, len(all))
	for _, r := range all {
		if a.Options.MaskDataless && !hasDataThread(&r) {
			continue
		}
		if a.Callbacks.SelectionFilter != nil && !a.Callbacks.SelectionFilter(&r, nil) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func hasDataThread(r *Record) bool {
	for i := range r.Threads {
		if r.Threads[i].Class == ThreadClassData {
			return true
		}
	}
	for _, m := range r.mods {
		if am, ok := m.(*AddMod); ok && am.ThreadClass == ThreadClassData {
			return true
		}
	}
	return false
}
