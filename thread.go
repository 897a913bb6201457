package nufx

import "github.com/shrinkit/nufx/internal/datasrc"

// ThreadFormat is the codec a thread's bytes are stored with (spec.md §3,
// §6 GLOSSARY "Thread format"). It is the same enumeration the data-source
// layer uses to describe bytes it already carries.
type ThreadFormat = datasrc.Format

const (
	// ThreadFormatUnknown is the zero value of ThreadFormat, used as a
	// sentinel for "caller did not specify a target format" distinct from
	// ThreadFormatStored (spec.md §6 "data-compression").
	ThreadFormatUnknown = datasrc.FormatUnknown
	ThreadFormatStored  = datasrc.FormatStored
	ThreadFormatLZW1    = datasrc.FormatLZW1
	ThreadFormatLZW2    = datasrc.FormatLZW2
	ThreadFormatHuffSQ  = datasrc.FormatHuffSQ
	ThreadFormatLZC12   = datasrc.FormatLZC12
	ThreadFormatLZC16   = datasrc.FormatLZC16
	ThreadFormatDeflate = datasrc.FormatDeflate
	ThreadFormatBzip2   = datasrc.FormatBzip2
)

// ThreadClass determines how ThreadKind is interpreted (spec.md §3).
type ThreadClass uint16

const (
	ThreadClassMessage ThreadClass = 0x0000
	ThreadClassControl ThreadClass = 0x0001
	ThreadClassData    ThreadClass = 0x0002
	ThreadClassFilename ThreadClass = 0x0003
)

// ThreadKind enumerates the kinds recognized within ThreadClassData/Message
// (spec.md §3's "data | filename | comment | control | …").
type ThreadKind uint16

const (
	ThreadKindDataFork    ThreadKind = 0x0000
	ThreadKindDiskImage   ThreadKind = 0x0001
	ThreadKindResourceFork ThreadKind = 0x0002
	ThreadKindFilename    ThreadKind = 0x0000 // within ThreadClassFilename
	ThreadKindComment     ThreadKind = 0x0001 // within ThreadClassMessage
)

// Thread is one byte stream within a Record (spec.md §3).
type Thread struct {
	// ThreadIdx is a process-unique, runtime identity for this thread.
	ThreadIdx uint32

	Class  ThreadClass
	Kind   ThreadKind
	Format ThreadFormat

	// CRC is the uncompressed-content CRC stored in the thread header.
	CRC uint16
	// UncompressedEOF is the logical (post-expansion) length.
	UncompressedEOF uint32
	// CompressedEOF is the on-disk length of the thread's bytes.
	CompressedEOF uint32

	// FileOffset is this thread's byte offset within the archive.
	FileOffset int64

	// ActualEOF is filled in after extraction: the number of bytes the
	// caller's sink actually received (may differ from UncompressedEOF
	// only in pathological/truncated archives).
	ActualEOF uint32

	// used is transient per-flush bookkeeping (spec.md §3): cleared at the
	// start of a flush and must be set exactly once by the flush when this
	// thread (or its matching ThreadMod) has been accounted for.
	used bool
}

// IsPresized reports whether this thread's on-disk allocation is fixed
// (filename, comment) rather than sized to its content (spec.md GLOSSARY
// "Pre-sized thread").
func (t *Thread) IsPresized() bool {
	return t.Class == ThreadClassFilename ||
		(t.Class == ThreadClassMessage && t.Kind == ThreadKindComment)
}

// threadOrderRank implements the fixed emission order of spec.md §4.6 Step
// 5: filename, then comment(s), then data-fork, disk-image, resource-fork,
// then everything else.
func threadOrderRank(t *Thread) int {
	switch {
	case t.Class == ThreadClassFilename:
		return 0
	case t.Class == ThreadClassMessage && t.Kind == ThreadKindComment:
		return 1
	case t.Class == ThreadClassData && t.Kind == ThreadKindDataFork:
		return 2
	case t.Class == ThreadClassData && t.Kind == ThreadKindDiskImage:
		return 3
	case t.Class == ThreadClassData && t.Kind == ThreadKindResourceFork:
		return 4
	default:
		return 5
	}
}
