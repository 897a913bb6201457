// Package nuerr defines the error-kind taxonomy shared by every layer of
// the archive engine. It lives below the root package so that internal
// leaf packages (byteio, datasrc, codec, eol, wrapper) can
// return typed errors without importing the root package.
package nuerr

import "golang.org/x/xerrors"

// Kind classifies an Error. The taxonomy mirrors the original NuFX engine's
// error codes (spec.md §7) rather than inventing a Go-idiomatic subset,
// since callers of a faithful archive library need to distinguish e.g.
// bad-master-CRC from bad-record-CRC.
type Kind uint16

const (
	KindGeneric Kind = iota
	KindInternal
	KindUsage
	KindInvalidArgument
	KindBusy
	KindSkipped
	KindAborted
	KindRename
	KindFile
	KindFileOpen
	KindFileClose
	KindFileRead
	KindFileWrite
	KindFileSeek
	KindFileExists
	KindFileNotFound
	KindFileStat
	KindNotNuFX
	KindBadMasterVersion
	KindRecordHeaderNotFound
	KindNoRecords
	KindBadRecord
	KindBadMasterCRC
	KindBadRecordCRC
	KindBadThreadCRC
	KindBadDataCRC
	KindBadFormat
	KindBadData
	KindBufferOverrun
	KindBufferUnderrun
	KindOutMax
	KindNotFound
	KindRecordNotFound
	KindRecordIdxNotFound
	KindThreadIdxNotFound
	KindThreadIDNotFound
	KindRecordNameNotFound
	KindRecordExists
	KindAllDeleted
	KindArchiveReadOnly
	KindModifiedRecordChange
	KindModifiedThreadChange
	KindThreadAdd
	KindNotPresized
	KindPresizeOverflow
	KindInvalidFilename
	KindLeadingSeparator
	KindNotNewer
	KindDuplicateNotFound
	KindDamaged
	KindIsBinaryII
	KindUnknownFeature
	KindUnsupportedFeature
)

var kindNames = map[Kind]string{
	KindGeneric:              "generic",
	KindInternal:             "internal",
	KindUsage:                "usage",
	KindInvalidArgument:      "invalid-argument",
	KindBusy:                 "busy",
	KindSkipped:              "skipped",
	KindAborted:              "aborted",
	KindRename:               "rename",
	KindFile:                 "file",
	KindFileOpen:             "file-open",
	KindFileClose:            "file-close",
	KindFileRead:             "file-read",
	KindFileWrite:            "file-write",
	KindFileSeek:             "file-seek",
	KindFileExists:           "file-exists",
	KindFileNotFound:         "file-not-found",
	KindFileStat:             "file-stat",
	KindNotNuFX:              "not-NuFX",
	KindBadMasterVersion:     "bad-master-version",
	KindRecordHeaderNotFound: "record-header-not-found",
	KindNoRecords:            "no-records",
	KindBadRecord:            "bad-record",
	KindBadMasterCRC:         "bad-master-CRC",
	KindBadRecordCRC:         "bad-record-CRC",
	KindBadThreadCRC:         "bad-thread-CRC",
	KindBadDataCRC:           "bad-data-CRC",
	KindBadFormat:            "bad-format",
	KindBadData:              "bad-data",
	KindBufferOverrun:        "buffer-overrun",
	KindBufferUnderrun:       "buffer-underrun",
	KindOutMax:               "out-max",
	KindNotFound:             "not-found",
	KindRecordNotFound:       "record-not-found",
	KindRecordIdxNotFound:    "record-idx-not-found",
	KindThreadIdxNotFound:    "thread-idx-not-found",
	KindThreadIDNotFound:     "thread-id-not-found",
	KindRecordNameNotFound:   "record-name-not-found",
	KindRecordExists:         "record-exists",
	KindAllDeleted:           "all-deleted",
	KindArchiveReadOnly:      "archive-read-only",
	KindModifiedRecordChange: "modified-record-change",
	KindModifiedThreadChange: "modified-thread-change",
	KindThreadAdd:            "thread-add",
	KindNotPresized:          "not-presized",
	KindPresizeOverflow:      "presize-overflow",
	KindInvalidFilename:      "invalid-filename",
	KindLeadingSeparator:     "leading-separator",
	KindNotNewer:             "not-newer",
	KindDuplicateNotFound:    "duplicate-not-found",
	KindDamaged:              "damaged",
	KindIsBinaryII:           "is-Binary-II",
	KindUnknownFeature:       "unknown-feature",
	KindUnsupportedFeature:   "unsupported-feature",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is the single error type returned by every layer of the engine.
// It wraps an underlying cause (which may be nil) and carries a Kind so
// callers can branch on errors.Is/As rather than string-matching.
type Error struct {
	Kind Kind
	Msg  string
	err  error // wrapped cause, may be nil
	fr   xerrors.Frame
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Msg + ": " + e.err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.err }

// Is supports errors.Is(err, &Error{Kind: K}) as a way to test for a kind
// without caring about the message or wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an Error of the given kind with a formatted message and an
// optional wrapped cause.
func New(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind: kind,
		Msg:  xerrors.Errorf(format, args...).Error(),
		err:  cause,
		fr:   xerrors.Caller(1),
	}
}

// Sentinel returns a plain error value usable with errors.Is to test kind
// only, e.g. errors.Is(err, nuerr.Sentinel(KindSkipped)).
func Sentinel(kind Kind) error { return &Error{Kind: kind} }
