package nufx

import (
	"testing"

	"github.com/shrinkit/nufx/internal/datasrc"
)

// A Flush with nothing queued and no materialized copy is a no-op success
// (spec.md §4.6 Step 1, trivial-change detection).
func TestFlushNoopWhenNothingQueued(t *testing.T) {
	path := newTempArchivePath(t)
	a, err := Create(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer a.Close()

	res, err := a.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if res.Status != FlushSucceeded {
		t.Errorf("Status = %v, want FlushSucceeded", res.Status)
	}
}

func TestPurgeEmptyRecords(t *testing.T) {
	var rs RecordSet
	rs.Append(Record{RecordIdx: 1, Threads: []Thread{{ThreadIdx: 1}}})
	rs.Append(Record{RecordIdx: 2})
	rs.Append(Record{RecordIdx: 3, Threads: []Thread{{ThreadIdx: 2}}})

	purgeEmptyRecords(&rs)

	if rs.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", rs.Count())
	}
	if rs.At(0).RecordIdx != 1 || rs.At(1).RecordIdx != 3 {
		t.Errorf("surviving records = %d, %d; want 1, 3", rs.At(0).RecordIdx, rs.At(1).RecordIdx)
	}
}

func TestAttachDefaultCommentSkipsExistingComment(t *testing.T) {
	var rs RecordSet
	rs.Append(Record{Threads: []Thread{{Class: ThreadClassMessage, Kind: ThreadKindComment}}})
	attachDefaultComment(&rs)
	if len(rs.At(0).mods) != 0 {
		t.Error("attachDefaultComment should not queue a mod when a comment thread already exists")
	}
}

func TestAttachDefaultCommentAddsWhenMissing(t *testing.T) {
	var rs RecordSet
	rs.Append(Record{})
	attachDefaultComment(&rs)
	if len(rs.At(0).mods) != 1 {
		t.Fatalf("got %d mods, want 1", len(rs.At(0).mods))
	}
	add, ok := rs.At(0).mods[0].(*AddMod)
	if !ok {
		t.Fatal("queued mod is not an AddMod")
	}
	if add.ThreadClass != ThreadClassMessage || add.ThreadKind != ThreadKindComment {
		t.Errorf("queued AddMod targets class %v kind %v, want message/comment", add.ThreadClass, add.ThreadKind)
	}
	if add.PresizeCapacity != defaultCommentCapacity {
		t.Errorf("PresizeCapacity = %d, want %d", add.PresizeCapacity, defaultCommentCapacity)
	}
}

func TestAttachDefaultCommentNoopOnEmptySet(t *testing.T) {
	var rs RecordSet
	attachDefaultComment(&rs) // must not panic on an empty set
}

// Flush with MimicShk synthesizes an empty comment thread on the first new
// record (spec.md §4.6 Step 3, §9 "mimic-shk").
func TestFlushMimicShkAttachesDefaultComment(t *testing.T) {
	path := newTempArchivePath(t)
	opts := DefaultOptions()
	opts.MimicShk = true
	a, err := Create(path, opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	addStoredRecord(t, a, "F", []byte("data"))

	if _, err := a.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	a2, err := Open(path, ModeReadOnly, DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a2.Close()

	rec := a2.Records()[0]
	var found bool
	for _, th := range rec.Threads {
		if th.Class == ThreadClassMessage && th.Kind == ThreadKindComment {
			found = true
		}
	}
	if !found {
		t.Error("expected a synthesized empty comment thread")
	}
}

// A never-materialized copy set, or one containing only Update mods, is
// eligible for the in-place flush path (spec.md §4.6 Step 4).
func TestEligibleForInPlace(t *testing.T) {
	path := newTempArchivePath(t)
	a, err := Create(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer a.Close()

	if !a.eligibleForInPlace() {
		t.Error("an unmaterialized copy set should be eligible for in-place flush")
	}

	a.Options.DiscardWrapper = true
	if a.eligibleForInPlace() {
		t.Error("DiscardWrapper should force the rebuild path")
	}
	a.Options.DiscardWrapper = false

	a.copy.Append(Record{Threads: []Thread{{ThreadIdx: 1, Class: ThreadClassFilename}}})
	src := datasrc.NewBufferSource([]byte("x"), datasrc.FormatStored)
	if err := a.copy.At(0).UpdateThread(&UpdateMod{ThreadIdx: 1, Source: src}); err != nil {
		t.Fatalf("UpdateThread: %v", err)
	}
	if !a.eligibleForInPlace() {
		t.Error("a copy set with only Update mods should remain eligible for in-place flush")
	}

	if err := a.copy.At(0).DeleteThread(&DeleteMod{ThreadIdx: 1}); err == nil {
		t.Fatal("this thread already has a queued Update; DeleteThread should be rejected")
	}

	a.copy.At(0).MarkDirty()
	if a.eligibleForInPlace() {
		t.Error("a dirty-header record should force the rebuild path")
	}
}

// ModifyOrig=false always forces the rebuild path, even when the copy set
// would otherwise qualify for in-place flush (spec.md §6 "ModifyOrig").
func TestEligibleForInPlaceRejectsModifyOrigFalse(t *testing.T) {
	path := newTempArchivePath(t)
	a, err := Create(path, DefaultOptions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer a.Close()

	if !a.eligibleForInPlace() {
		t.Fatal("sanity check: default options should be eligible for in-place flush")
	}
	a.Options.ModifyOrig = false
	if a.eligibleForInPlace() {
		t.Error("ModifyOrig=false should force the rebuild path")
	}
}

// Replacing every thread via AddMod-after-delete still forces rebuild, since
// only UpdateMod keeps the in-place path eligible.
func TestEligibleForInPlaceRejectsAddMod(t *testing.T) {
	a := Archive{Options: DefaultOptions()}
	a.copy.Append(Record{Threads: []Thread{{ThreadIdx: 1, Class: ThreadClassData}}})
	if err := a.copy.At(0).DeleteThread(&DeleteMod{ThreadIdx: 1}); err != nil {
		t.Fatalf("DeleteThread: %v", err)
	}
	src := datasrc.NewBufferSource([]byte("x"), datasrc.FormatStored)
	if err := a.copy.At(0).AddThread(&AddMod{ThreadClass: ThreadClassData, Source: src}); err != nil {
		t.Fatalf("AddThread: %v", err)
	}
	if a.eligibleForInPlace() {
		t.Error("a record with a queued Delete/Add should force the rebuild path")
	}
}
