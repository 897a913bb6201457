package nufx

import (
	"testing"

	"github.com/shrinkit/nufx/internal/datasrc"
)

func TestAddThreadRejectsSecondFilenameThread(t *testing.T) {
	rec := &Record{}
	src := datasrc.NewBufferSource([]byte("NAME"), datasrc.FormatStored)

	if err := rec.AddThread(&AddMod{ThreadClass: ThreadClassFilename, Source: src}); err != nil {
		t.Fatalf("first AddThread: %v", err)
	}
	if err := rec.AddThread(&AddMod{ThreadClass: ThreadClassFilename, Source: src}); err == nil {
		t.Fatal("expected error queueing a second filename-thread add")
	}
}

func TestAddThreadRejectsFilenameThreadWhenOneExists(t *testing.T) {
	rec := &Record{Threads: []Thread{{Class: ThreadClassFilename, ThreadIdx: 0}}}
	src := datasrc.NewBufferSource([]byte("NAME"), datasrc.FormatStored)
	if err := rec.AddThread(&AddMod{ThreadClass: ThreadClassFilename, Source: src}); err == nil {
		t.Fatal("expected error queueing a filename-thread add when one already exists")
	}
}

func TestUpdateThreadRequiresExistingPresizedThread(t *testing.T) {
	rec := &Record{Threads: []Thread{
		{ThreadIdx: 1, Class: ThreadClassData, Kind: ThreadKindDataFork},
	}}
	src := datasrc.NewBufferSource([]byte("x"), datasrc.FormatStored)

	if err := rec.UpdateThread(&UpdateMod{ThreadIdx: 99, Source: src}); err == nil {
		t.Fatal("expected error updating a nonexistent thread")
	}
	if err := rec.UpdateThread(&UpdateMod{ThreadIdx: 1, Source: src}); err == nil {
		t.Fatal("expected error updating a non-presized thread")
	}
}

func TestUpdateThreadRejectsDoubleMod(t *testing.T) {
	rec := &Record{Threads: []Thread{{ThreadIdx: 1, Class: ThreadClassFilename}}}
	src := datasrc.NewBufferSource([]byte("x"), datasrc.FormatStored)

	if err := rec.UpdateThread(&UpdateMod{ThreadIdx: 1, Source: src}); err != nil {
		t.Fatalf("first UpdateThread: %v", err)
	}
	if err := rec.UpdateThread(&UpdateMod{ThreadIdx: 1, Source: src}); err == nil {
		t.Fatal("expected error queueing a second mod against the same thread")
	}
	if err := rec.DeleteThread(&DeleteMod{ThreadIdx: 1}); err == nil {
		t.Fatal("expected error queueing a delete against an already-modified thread")
	}
}

func TestDeleteThreadRequiresExisting(t *testing.T) {
	rec := &Record{}
	if err := rec.DeleteThread(&DeleteMod{ThreadIdx: 1}); err == nil {
		t.Fatal("expected error deleting a nonexistent thread")
	}
}

func TestResultingThreadCount(t *testing.T) {
	rec := &Record{Threads: []Thread{{ThreadIdx: 1}, {ThreadIdx: 2}}}
	if got := rec.resultingThreadCount(); got != 2 {
		t.Fatalf("resultingThreadCount() = %d, want 2", got)
	}

	src := datasrc.NewBufferSource([]byte("x"), datasrc.FormatStored)
	if err := rec.AddThread(&AddMod{ThreadClass: ThreadClassData, Source: src}); err != nil {
		t.Fatalf("AddThread: %v", err)
	}
	if err := rec.DeleteThread(&DeleteMod{ThreadIdx: 1}); err != nil {
		t.Fatalf("DeleteThread: %v", err)
	}
	if got := rec.resultingThreadCount(); got != 2 {
		t.Fatalf("resultingThreadCount() after +1/-1 = %d, want 2", got)
	}
}

func TestClearUsedResetsAllFlags(t *testing.T) {
	rec := &Record{Threads: []Thread{{ThreadIdx: 1, used: true}}}
	add := &AddMod{ThreadClass: ThreadClassData, Source: datasrc.NewBufferSource(nil, datasrc.FormatStored)}
	add.markUsed()
	rec.mods = append(rec.mods, add)

	rec.clearUsed()

	if rec.Threads[0].used {
		t.Error("thread used flag not cleared")
	}
	if add.isUsed() {
		t.Error("mod used flag not cleared")
	}
}
