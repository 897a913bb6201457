package nufx

import "github.com/shrinkit/nufx/internal/byteio"

// Record is one logical file: a header plus one or more Threads (spec.md
// §3). RecordIdx is a runtime identity, not persisted.
type Record struct {
	RecordIdx uint32

	AttribCount uint16
	Version     uint16

	Created  byteio.DateTime
	Modified byteio.DateTime
	Archived byteio.DateTime

	// FilesystemID and Separator describe the embedded-pathname encoding
	// (spec.md §3 "file-system info"). Charset translation itself is out
	// of scope (spec.md §1 Non-goals).
	FilesystemID uint8
	Separator    uint8

	StorageType uint16
	FileType    uint32
	AuxType     uint32
	AccessFlags uint32

	// HeaderFilename is the legacy header-resident name. FilenameFromThread
	// is the preferred name taken from a filename thread, when present.
	HeaderFilename     string
	FilenameFromThread string

	// OptionList is the raw GS/OS option-list payload (spec.md §6), and
	// ExtraBytes is whatever lies between it and the filename-length field.
	// Neither is interpreted; both are preserved verbatim on rewrite so an
	// unrecognised optional section round-trips untouched.
	OptionList []byte
	ExtraBytes []byte

	Threads []Thread

	// HeaderCRC is the verified (or, if ignore-crc is set, unverified)
	// record-header CRC.
	HeaderCRC uint16

	// FileOffset is this record's byte offset within the archive, and
	// RawHeaderLen is the on-disk header length remembered verbatim so
	// unrecognised optional sections are preserved on rewrite (spec.md
	// §4.3).
	FileOffset   int64
	RawHeaderLen int

	// TotalCompressedLen is the sum of every thread's CompressedEOF.
	TotalCompressedLen int64

	// dirtyHeader marks a record whose header must be rewritten even if no
	// thread data changed (spec.md §3).
	dirtyHeader bool

	// mods is this record's ThreadMod journal (spec.md §4.4).
	mods []ThreadMod

	nextThreadIdx uint32
}

// Filename returns FilenameFromThread if present, else HeaderFilename,
// matching spec.md §3's "preferred" ordering.
func (r *Record) Filename() string {
	if r.FilenameFromThread != "" {
		return r.FilenameFromThread
	}
	return r.HeaderFilename
}

// MarkDirty sets the dirty-header flag (spec.md §3).
func (r *Record) MarkDirty() { r.dirtyHeader = true }

// IsDirty reports the dirty-header flag.
func (r *Record) IsDirty() bool { return r.dirtyHeader }

// FindThreadByIdx walks this record's threads for a matching ThreadIdx
// (spec.md §4.2 "find-by-thread-index").
func (r *Record) FindThreadByIdx(idx uint32) *Thread {
	for i := range r.Threads {
		if r.Threads[i].ThreadIdx == idx {
			return &r.Threads[i]
		}
	}
	return nil
}

// clone makes a deep copy of r, used by RecordSet.Clone and ReplaceRecord
// (spec.md §4.2).
func (r *Record) clone() Record {
	cp := *r
	cp.Threads = append([]Thread(nil), r.Threads...)
	cp.mods = append([]ThreadMod(nil), r.mods...)
	cp.OptionList = append([]byte(nil), r.OptionList...)
	cp.ExtraBytes = append([]byte(nil), r.ExtraBytes...)
	return cp
}
