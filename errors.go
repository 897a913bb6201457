package nufx

import "github.com/shrinkit/nufx/internal/nuerr"

// Kind classifies an Error (spec.md §7's error-kind taxonomy). It is
// defined in an internal package so leaf packages can return typed errors
// without importing this one; Kind is simply an alias here.
type Kind = nuerr.Kind

// Error is the single error type every operation in this package returns.
type Error = nuerr.Error

// The Kind taxonomy (spec.md §7), re-exported for callers to branch on
// with errors.As(&Error{}) or errors.Is(err, nufx.Sentinel(KindSkipped)).
const (
	KindGeneric              = nuerr.KindGeneric
	KindInternal              = nuerr.KindInternal
	KindUsage                 = nuerr.KindUsage
	KindInvalidArgument       = nuerr.KindInvalidArgument
	KindBusy                  = nuerr.KindBusy
	KindSkipped               = nuerr.KindSkipped
	KindAborted               = nuerr.KindAborted
	KindRename                = nuerr.KindRename
	KindFile                  = nuerr.KindFile
	KindFileOpen              = nuerr.KindFileOpen
	KindFileClose             = nuerr.KindFileClose
	KindFileRead              = nuerr.KindFileRead
	KindFileWrite             = nuerr.KindFileWrite
	KindFileSeek              = nuerr.KindFileSeek
	KindFileExists            = nuerr.KindFileExists
	KindFileNotFound          = nuerr.KindFileNotFound
	KindFileStat              = nuerr.KindFileStat
	KindNotNuFX               = nuerr.KindNotNuFX
	KindBadMasterVersion      = nuerr.KindBadMasterVersion
	KindRecordHeaderNotFound  = nuerr.KindRecordHeaderNotFound
	KindNoRecords             = nuerr.KindNoRecords
	KindBadRecord             = nuerr.KindBadRecord
	KindBadMasterCRC          = nuerr.KindBadMasterCRC
	KindBadRecordCRC          = nuerr.KindBadRecordCRC
	KindBadThreadCRC          = nuerr.KindBadThreadCRC
	KindBadDataCRC            = nuerr.KindBadDataCRC
	KindBadFormat             = nuerr.KindBadFormat
	KindBadData               = nuerr.KindBadData
	KindBufferOverrun         = nuerr.KindBufferOverrun
	KindBufferUnderrun        = nuerr.KindBufferUnderrun
	KindOutMax                = nuerr.KindOutMax
	KindNotFound              = nuerr.KindNotFound
	KindRecordNotFound        = nuerr.KindRecordNotFound
	KindRecordIdxNotFound     = nuerr.KindRecordIdxNotFound
	KindThreadIdxNotFound     = nuerr.KindThreadIdxNotFound
	KindThreadIDNotFound      = nuerr.KindThreadIDNotFound
	KindRecordNameNotFound    = nuerr.KindRecordNameNotFound
	KindRecordExists          = nuerr.KindRecordExists
	KindAllDeleted            = nuerr.KindAllDeleted
	KindArchiveReadOnly       = nuerr.KindArchiveReadOnly
	KindModifiedRecordChange  = nuerr.KindModifiedRecordChange
	KindModifiedThreadChange  = nuerr.KindModifiedThreadChange
	KindThreadAdd             = nuerr.KindThreadAdd
	KindNotPresized           = nuerr.KindNotPresized
	KindPresizeOverflow       = nuerr.KindPresizeOverflow
	KindInvalidFilename       = nuerr.KindInvalidFilename
	KindLeadingSeparator      = nuerr.KindLeadingSeparator
	KindNotNewer              = nuerr.KindNotNewer
	KindDuplicateNotFound     = nuerr.KindDuplicateNotFound
	KindDamaged               = nuerr.KindDamaged
	KindIsBinaryII            = nuerr.KindIsBinaryII
	KindUnknownFeature        = nuerr.KindUnknownFeature
	KindUnsupportedFeature    = nuerr.KindUnsupportedFeature
)

// Sentinel returns a plain *Error usable with errors.Is to test only the
// Kind of a returned error, e.g. errors.Is(err, nufx.Sentinel(KindSkipped)).
func Sentinel(kind Kind) error { return nuerr.Sentinel(kind) }

// newErr is the package-local constructor shared by every file in the root
// package, thin wrapper over nuerr.New.
func newErr(kind Kind, cause error, format string, args ...interface{}) *Error {
	return nuerr.New(kind, cause, format, args...)
}

// FlushStatus is the user-visible bitfield result of a Flush (spec.md §7).
type FlushStatus uint8

const (
	FlushSucceeded FlushStatus = 1 << iota
	FlushAborted
	FlushCorrupted
	FlushReadOnlyFallback
	FlushInaccessible
)

func (s FlushStatus) Has(bit FlushStatus) bool { return s&bit != 0 }

// FlushResult is returned by Archive.Flush.
type FlushResult struct {
	Status FlushStatus
	// TempPath is set when the rebuild path's rename of its temp file over
	// the original archive failed (spec.md §4.6 "Rename failure"). The
	// original archive is left as it was, and the rebuilt archive is kept
	// at this path for the caller to recover manually.
	TempPath string
}
