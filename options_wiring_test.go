package nufx

import (
	"testing"
	"time"

	"github.com/shrinkit/nufx/internal/byteio"
	"github.com/shrinkit/nufx/internal/datasrc"
)

// HandleAlways displaces the existing record rather than rejecting the add
// (spec.md §6 "handle-existing").
func TestAddRecordHandleAlwaysOverwrites(t *testing.T) {
	path := newTempArchivePath(t)
	opts := DefaultOptions()
	opts.HandleExisting = HandleAlways
	a, err := Create(path, opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer a.Close()

	addStoredRecord(t, a, "DUP", []byte("old"))
	rec, err := a.AddRecord(Record{HeaderFilename: "DUP"})
	if err != nil {
		t.Fatalf("AddRecord with HandleAlways: %v", err)
	}
	if err := rec.AddThread(&AddMod{
		ThreadClass:  ThreadClassData,
		ThreadKind:   ThreadKindDataFork,
		TargetFormat: ThreadFormatStored,
		Source:       datasrc.NewBufferSource([]byte("new"), datasrc.FormatStored),
	}); err != nil {
		t.Fatalf("AddThread: %v", err)
	}

	if _, err := a.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if a.orig.Count() != 1 {
		t.Errorf("expected exactly one surviving record after overwrite, got %d", a.orig.Count())
	}
}

// HandleRename disambiguates the new record's name instead of rejecting it.
func TestAddRecordHandleRenameDisambiguates(t *testing.T) {
	path := newTempArchivePath(t)
	opts := DefaultOptions()
	opts.HandleExisting = HandleRename
	a, err := Create(path, opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer a.Close()

	addStoredRecord(t, a, "DUP", []byte("old"))
	rec, err := a.AddRecord(Record{HeaderFilename: "DUP"})
	if err != nil {
		t.Fatalf("AddRecord with HandleRename: %v", err)
	}
	if rec.Filename() == "DUP" {
		t.Error("HandleRename should have disambiguated the new record's name")
	}
}

// HandleAskViaCallback consults the installed ErrorHandler and honors its
// verdict (spec.md §6 "ask-via-callback").
func TestAddRecordHandleAskViaCallback(t *testing.T) {
	path := newTempArchivePath(t)
	opts := DefaultOptions()
	opts.HandleExisting = HandleAskViaCallback
	a, err := Create(path, opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer a.Close()

	addStoredRecord(t, a, "DUP", []byte("old"))

	var asked bool
	a.Callbacks.ErrorHandler = func(err error) CallbackResult {
		asked = true
		return CallbackSkip
	}
	if _, err := a.AddRecord(Record{HeaderFilename: "DUP"}); err == nil {
		t.Fatal("expected CallbackSkip to propagate as an error")
	}
	if !asked {
		t.Error("ErrorHandler was never consulted")
	}

	a.Callbacks.ErrorHandler = func(err error) CallbackResult { return CallbackResume }
	if _, err := a.AddRecord(Record{HeaderFilename: "DUP"}); err != nil {
		t.Fatalf("expected CallbackResume to permit the add: %v", err)
	}
}

// DataCompression supplies the default TargetFormat when AddThread's
// caller leaves it unspecified (spec.md §6 "data-compression").
func TestArchiveAddThreadDefaultsToDataCompression(t *testing.T) {
	path := newTempArchivePath(t)
	opts := DefaultOptions()
	opts.DataCompression = ThreadFormatLZW2
	a, err := Create(path, opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer a.Close()

	rec, err := a.AddRecord(Record{HeaderFilename: "F"})
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	m := &AddMod{
		ThreadClass: ThreadClassData,
		ThreadKind:  ThreadKindDataFork,
		Source:      datasrc.NewBufferSource([]byte("hello"), datasrc.FormatUnknown),
	}
	if err := a.AddThread(rec, m); err != nil {
		t.Fatalf("AddThread: %v", err)
	}
	if m.TargetFormat != ThreadFormatLZW2 {
		t.Errorf("TargetFormat = %v, want %v (the configured DataCompression default)", m.TargetFormat, ThreadFormatLZW2)
	}
}

// An explicit TargetFormat is never overridden by DataCompression.
func TestArchiveAddThreadRespectsExplicitTargetFormat(t *testing.T) {
	path := newTempArchivePath(t)
	opts := DefaultOptions()
	opts.DataCompression = ThreadFormatLZW2
	a, err := Create(path, opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer a.Close()

	rec, err := a.AddRecord(Record{HeaderFilename: "F"})
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	m := &AddMod{
		ThreadClass:  ThreadClassData,
		ThreadKind:   ThreadKindDataFork,
		TargetFormat: ThreadFormatStored,
		Source:       datasrc.NewBufferSource([]byte("hello"), datasrc.FormatUnknown),
	}
	if err := a.AddThread(rec, m); err != nil {
		t.Fatalf("AddThread: %v", err)
	}
	if m.TargetFormat != ThreadFormatStored {
		t.Errorf("TargetFormat = %v, want ThreadFormatStored (caller's explicit choice)", m.TargetFormat)
	}
}

// fixedModTimeSource pairs a BufferSource with a fixed, queryable ModTime
// for exercising OnlyUpdateOlder without touching the filesystem.
type fixedModTimeSource struct {
	*datasrc.BufferSource
	t time.Time
}

func (f fixedModTimeSource) ModTime() (time.Time, bool) { return f.t, true }

// OnlyUpdateOlder rejects an update whose source is no newer than the
// target thread's recorded modification time (spec.md §6 "only-update-older").
func TestArchiveUpdateThreadEnforcesOnlyUpdateOlder(t *testing.T) {
	path := newTempArchivePath(t)
	opts := DefaultOptions()
	opts.OnlyUpdateOlder = true
	a, err := Create(path, opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer a.Close()

	rec, err := a.AddRecord(Record{
		HeaderFilename: "F",
		Modified:       byteio.DateTime{Year: 24, Month: 6, Day: 15}, // 2024-06-15
		Threads: []Thread{
			{ThreadIdx: 1, Class: ThreadClassFilename, Kind: ThreadKindFilename, Format: ThreadFormatStored},
		},
	})
	if err != nil {
		t.Fatalf("AddRecord: %v", err)
	}
	threadIdx := uint32(1)

	older := fixedModTimeSource{BufferSource: datasrc.NewBufferSource([]byte("OLD"), datasrc.FormatStored), t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)}
	if err := a.UpdateThread(rec, &UpdateMod{ThreadIdx: threadIdx, Source: older}); err == nil {
		t.Fatal("expected an older update source to be rejected")
	}

	newer := fixedModTimeSource{BufferSource: datasrc.NewBufferSource([]byte("NEW"), datasrc.FormatStored), t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)}
	if err := a.UpdateThread(rec, &UpdateMod{ThreadIdx: threadIdx, Source: newer}); err != nil {
		t.Fatalf("expected a newer update source to be accepted: %v", err)
	}
}
