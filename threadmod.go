package nufx

import "github.com/shrinkit/nufx/internal/datasrc"

// ThreadMod is a tagged deferred modification attached to a Record
// (spec.md §3, §4.4). The original's single kind-discriminated struct
// (spec.md §9 "Tagged unions") is expressed here as a closed interface
// satisfied by three concrete types, matching the design note's
// recommendation to map it onto a sum type.
type ThreadMod interface {
	isThreadMod()
	// used reports/sets the per-flush bookkeeping flag (spec.md §3): it
	// belongs on the journal entry, not on each variant's payload, but in
	// Go that's simplest as a method set shared via embedding.
	markUsed()
	isUsed() bool
}

type modBase struct{ used bool }

func (m *modBase) markUsed()     { m.used = true }
func (m *modBase) isUsed() bool  { return m.used }

// AddMod introduces a new thread (spec.md §3 "Add(threadID, target-format,
// dataSource, isPresized)").
type AddMod struct {
	modBase
	ThreadClass  ThreadClass
	ThreadKind   ThreadKind
	TargetFormat ThreadFormat
	Source       datasrc.Source
	IsPresized   bool
	// PresizeCapacity is the allocated on-disk size for a pre-sized add
	// (filename/comment); ignored otherwise.
	PresizeCapacity int64

	// assignedIdx is filled in by the journal when the mod is enqueued,
	// giving the fresh thread-index spec.md §3 promises ("Add produces a
	// fresh thread-index").
	assignedIdx uint32
}

func (*AddMod) isThreadMod() {}

// UpdateMod overwrites the bytes of an existing pre-sized thread only
// (spec.md §3 "Update(threadIdx, dataSource)").
type UpdateMod struct {
	modBase
	ThreadIdx uint32
	Source    datasrc.Source
}

func (*UpdateMod) isThreadMod() {}

// DeleteMod removes an existing thread (spec.md §3 "Delete(threadIdx,
// threadID)").
type DeleteMod struct {
	modBase
	ThreadIdx uint32
}

func (*DeleteMod) isThreadMod() {}

// Mods returns this record's ThreadMod journal in enqueue order (spec.md
// §4.4: "ordering within a record is preserved for diagnostics only").
func (r *Record) Mods() []ThreadMod { return r.mods }

// HasMods reports whether any ThreadMod is queued against this record.
func (r *Record) HasMods() bool { return len(r.mods) > 0 }

// clearUsed resets the used flag on every queued mod and every existing
// thread, as required at the start of a flush (spec.md §3 invariant).
func (r *Record) clearUsed() {
	for i := range r.mods {
		switch m := r.mods[i].(type) {
		case *AddMod:
			m.used = false
		case *UpdateMod:
			m.used = false
		case *DeleteMod:
			m.used = false
		}
	}
	for i := range r.Threads {
		r.Threads[i].used = false
	}
}

// AddThread enqueues an Add, per the spec.md §4.4 pre-condition: at most
// one filename thread may be added.
func (r *Record) AddThread(m *AddMod) error {
	if m.ThreadClass == ThreadClassFilename {
		for _, t := range r.Threads {
			if t.Class == ThreadClassFilename {
				return newErr(KindThreadAdd, nil, "record already has a filename thread")
			}
		}
		for _, existing := range r.mods {
			if am, ok := existing.(*AddMod); ok && am.ThreadClass == ThreadClassFilename {
				return newErr(KindThreadAdd, nil, "a filename-thread add is already queued")
			}
		}
	}
	m.assignedIdx = r.nextThreadIdx
	r.nextThreadIdx++
	r.mods = append(r.mods, m)
	return nil
}

// UpdateThread enqueues an Update, validating the spec.md §4.4
// pre-conditions: the target thread must exist and be pre-sized.
func (r *Record) UpdateThread(m *UpdateMod) error {
	t := r.FindThreadByIdx(m.ThreadIdx)
	if t == nil {
		return newErr(KindThreadIdxNotFound, nil, "update: thread %d not found", m.ThreadIdx)
	}
	if !t.IsPresized() {
		return newErr(KindNotPresized, nil, "update: thread %d is not pre-sized", m.ThreadIdx)
	}
	if err := r.checkSingleMod(m.ThreadIdx); err != nil {
		return err
	}
	r.mods = append(r.mods, m)
	return nil
}

// DeleteThread enqueues a Delete, validating that the target exists in the
// record's current ("copy") thread list.
func (r *Record) DeleteThread(m *DeleteMod) error {
	if r.FindThreadByIdx(m.ThreadIdx) == nil {
		return newErr(KindThreadIdxNotFound, nil, "delete: thread %d not found", m.ThreadIdx)
	}
	if err := r.checkSingleMod(m.ThreadIdx); err != nil {
		return err
	}
	r.mods = append(r.mods, m)
	return nil
}

// checkSingleMod enforces "at most one mod per existing thread" (spec.md
// §3 invariant).
func (r *Record) checkSingleMod(threadIdx uint32) error {
	for _, existing := range r.mods {
		var existingIdx uint32
		switch m := existing.(type) {
		case *UpdateMod:
			existingIdx = m.ThreadIdx
		case *DeleteMod:
			existingIdx = m.ThreadIdx
		default:
			continue
		}
		if existingIdx == threadIdx {
			return newErr(KindModifiedThreadChange, nil,
				"thread %d already has a queued modification", threadIdx)
		}
	}
	return nil
}

// verifyUsed checks the spec.md §4.6 Step 5 post-emission invariant: every
// queued ThreadMod and every pre-existing thread was accounted for exactly
// once during reconstruction. Call after emission, before r.Threads/r.mods
// are overwritten with the rebuilt set.
func (r *Record) verifyUsed() error {
	for _, m := range r.mods {
		if !m.isUsed() {
			return newErr(KindInternal, nil, "record %d: a queued thread modification was never applied", r.RecordIdx)
		}
	}
	for i := range r.Threads {
		if !r.Threads[i].used {
			return newErr(KindInternal, nil, "record %d: thread %d was never accounted for during reconstruction", r.RecordIdx, r.Threads[i].ThreadIdx)
		}
	}
	return nil
}

// resultingThreadCount is existing threads minus deletes plus adds
// (spec.md §4.6 Step 2).
func (r *Record) resultingThreadCount() int {
	count := len(r.Threads)
	for _, m := range r.mods {
		switch m.(type) {
		case *AddMod:
			count++
		case *DeleteMod:
			count--
		}
	}
	return count
}
