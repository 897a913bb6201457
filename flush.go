package nufx

import (
	"io"

	"github.com/shrinkit/nufx/internal/datasrc"
)

// emptySource is a zero-length datasrc.Source, used for the synthesized
// mimic-shk default comment (spec.md §4.6 Step 3).
type emptySource struct{}

func (emptySource) Len() int64                  { return 0 }
func (emptySource) OtherLen() int64              { return 0 }
func (emptySource) Format() datasrc.Format       { return datasrc.FormatStored }
func (emptySource) CRC() (uint16, bool)          { return 0, false }
func (emptySource) PrepareInput() error          { return nil }
func (emptySource) UnprepareInput() error        { return nil }
func (emptySource) GetBlock([]byte) (int, error) { return 0, io.EOF }
func (emptySource) Rewind() error                { return nil }

// Flush writes all queued modifications to disk per spec.md §4.6: trivial-
// change detection, empty-record purge, the optional ShrinkIt-
// compatibility hook, then either the in-place or the rebuild path.
func (a *Archive) Flush() (FlushResult, error) {
	if err := a.enter(); err != nil {
		return FlushResult{}, err
	}
	defer a.leave()

	if a.mode != ModeReadWrite {
		return FlushResult{}, newErr(KindArchiveReadOnly, nil, "flush requires a read-write archive")
	}
	if a.readOnly {
		return FlushResult{}, newErr(KindArchiveReadOnly, nil, "archive handle is latched read-only after a prior failure")
	}

	// Step 1 — trivial-change detection.
	if a.copy.Loaded() && !anyDirtyOrModified(&a.copy) && a.copy.Count() == a.orig.Count() {
		a.copy.Reset()
	}
	if !a.copy.Loaded() && a.new.Count() == 0 {
		return FlushResult{Status: FlushSucceeded}, nil
	}

	// Step 2 — empty-record purge.
	purgeEmptyRecords(&a.copy)
	purgeEmptyRecords(&a.new)

	// Step 3 — ShrinkIt-compatibility hook.
	if a.Options.MimicShk {
		attachDefaultComment(&a.new)
	}

	// Step 4 — path selection.
	if a.eligibleForInPlace() {
		return a.flushInPlace()
	}
	return a.flushRebuild()
}

func anyDirtyOrModified(rs *RecordSet) bool {
	for _, r := range rs.All() {
		if r.IsDirty() || r.HasMods() {
			return true
		}
	}
	return false
}

// purgeEmptyRecords deletes every record whose resulting thread count
// (existing − deletes + adds) reaches zero (spec.md §4.6 Step 2).
func purgeEmptyRecords(rs *RecordSet) {
	for i := rs.Count() - 1; i >= 0; i-- {
		if rs.At(i).resultingThreadCount() == 0 {
			rs.DeleteAt(i)
		}
	}
}

// defaultCommentCapacity is the pre-sized allocation used for the
// synthesized empty comment thread (spec.md §4.6 Step 3, §9 "mimic-shk").
const defaultCommentCapacity = 200

// attachDefaultComment implements spec.md §4.6 Step 3: the first record of
// `new` gets an empty, pre-sized comment thread if it has none.
func attachDefaultComment(rs *RecordSet) {
	if rs.Count() == 0 {
		return
	}
	rec := rs.At(0)
	for _, t := range rec.Threads {
		if t.Class == ThreadClassMessage && t.Kind == ThreadKindComment {
			return
		}
	}
	for _, m := range rec.mods {
		if am, ok := m.(*AddMod); ok && am.ThreadClass == ThreadClassMessage && am.ThreadKind == ThreadKindComment {
			return
		}
	}
	_ = rec.AddThread(&AddMod{
		ThreadClass:     ThreadClassMessage,
		ThreadKind:      ThreadKindComment,
		TargetFormat:    ThreadFormatStored,
		Source:          emptySource{},
		IsPresized:      true,
		PresizeCapacity: defaultCommentCapacity,
	})
}

// eligibleForInPlace implements spec.md §4.6 Step 4's in-place test: copy
// must be either unmaterialized or contain only Update mods, and the
// caller must not have asked to discard the wrapper.
func (a *Archive) eligibleForInPlace() bool {
	if !a.Options.ModifyOrig {
		return false
	}
	if a.Options.DiscardWrapper {
		return false
	}
	if !a.copy.Loaded() {
		return true
	}
	for _, r := range a.copy.All() {
		if r.IsDirty() {
			return false
		}
		for _, m := range r.Mods() {
			if _, ok := m.(*UpdateMod); !ok {
				return false
			}
		}
	}
	return true
}
