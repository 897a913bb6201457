package nufx

// RecordSet is one of the three in-memory collections (orig/copy/new,
// spec.md §3). Rather than the original's doubly-linked pointer list with
// deep-cloning moves, it is an index-addressed slice (spec.md §9 design
// note: "arena-per-archive allocation and index-based references rather
// than pointers ... removes the need for deep-cloning when moving records
// between sets").
type RecordSet struct {
	records []Record
	// loaded distinguishes "empty because unused" from "empty because
	// fully drained" (spec.md §4.2).
	loaded bool
}

// Loaded reports whether this set has ever been materialized.
func (rs *RecordSet) Loaded() bool { return rs.loaded }

// MarkLoaded sets the loaded flag; used when a set becomes the working
// copy even before any record is appended (spec.md §3 "lazily
// materialized").
func (rs *RecordSet) MarkLoaded() { rs.loaded = true }

// Count returns the number of records currently in the set.
func (rs *RecordSet) Count() int { return len(rs.records) }

// Append adds a record to the end of the set.
func (rs *RecordSet) Append(r Record) {
	rs.loaded = true
	rs.records = append(rs.records, r)
}

// At returns a pointer to the record at position i.
func (rs *RecordSet) At(i int) *Record { return &rs.records[i] }

// All returns every record in traversal order (spec.md §5 "Ordering
// guarantees": records are emitted in their copy/new traversal order).
func (rs *RecordSet) All() []Record { return rs.records }

// DeleteAt removes the record at position i, preserving order.
func (rs *RecordSet) DeleteAt(i int) {
	rs.records = append(rs.records[:i], rs.records[i+1:]...)
}

// FindByRecordIndex returns the record with the given RecordIdx, or nil.
func (rs *RecordSet) FindByRecordIndex(idx uint32) *Record {
	for i := range rs.records {
		if rs.records[i].RecordIdx == idx {
			return &rs.records[i]
		}
	}
	return nil
}

// FindByThreadIndex walks every record's threads for a matching ThreadIdx
// (spec.md §4.2 "find-by-thread-index").
func (rs *RecordSet) FindByThreadIndex(idx uint32) (*Record, *Thread) {
	for i := range rs.records {
		if t := rs.records[i].FindThreadByIdx(idx); t != nil {
			return &rs.records[i], t
		}
	}
	return nil, nil
}

// Clone returns a deep copy of rs (spec.md §4.2 "clone (deep)").
func (rs *RecordSet) Clone() *RecordSet {
	cp := &RecordSet{loaded: rs.loaded}
	cp.records = make([]Record, len(rs.records))
	for i := range rs.records {
		cp.records[i] = rs.records[i].clone()
	}
	return cp
}

// MoveAll transfers every record from src into rs, leaving src empty
// (spec.md §4.2 "move-all"). The records are appended to rs's slice, so
// the cost is linear in src's record count, not O(1).
func (rs *RecordSet) MoveAll(src *RecordSet) {
	rs.records = append(rs.records, src.records...)
	rs.loaded = rs.loaded || src.loaded
	src.records = nil
	src.loaded = false
}

// ReplaceRecord splices a deep copy of replacement into rs at the slot
// currently holding the record with replacement's RecordIdx (spec.md §4.2
// "replace-record (splice-in a deep copy from another set, freeing the old
// node in place)"). The flush engine's own skipped-record recovery
// (`flushrebuild.go`, `flushinplace.go`) reimplements this logic inline
// instead of calling it, since recovery also needs to rewind the temp
// file's write cursor to the record's original offset — a parallel
// bookkeeping concern this method has no way to drive.
func (rs *RecordSet) ReplaceRecord(replacement *Record) bool {
	for i := range rs.records {
		if rs.records[i].RecordIdx == replacement.RecordIdx {
			rs.records[i] = replacement.clone()
			return true
		}
	}
	return false
}

// Reset empties the set entirely, used when all records are deleted
// (spec.md §8 "Archive with all records deleted").
func (rs *RecordSet) Reset() {
	rs.records = nil
	rs.loaded = false
}
