package nufx

// EOLTarget is the line-ending convention conversion produces (spec.md §6).
type EOLTarget int

const (
	EOLTargetCR EOLTarget = iota
	EOLTargetLF
	EOLTargetCRLF
)

// ConvertMode selects when EOL conversion runs during extraction (spec.md
// §6 "convert-extracted-eol").
type ConvertMode int

const (
	ConvertOff ConvertMode = iota
	ConvertOn
	ConvertAuto
)

// HandleExisting selects how Add behaves when a destination already exists
// (spec.md §6 "handle-existing").
type HandleExisting int

const (
	HandleNeverOverwrite HandleExisting = iota
	HandleAlways
	HandleRename
	HandleAskViaCallback
)

// Options is the tunable configuration of an Archive (spec.md §6). It is a
// plain struct rather than a viper/cobra-bound config, since nufx is a
// library, not the teacher's CLI — but each field is documented the way
// the teacher documents its own config fields (distri.go's per-field doc
// comments).
type Options struct {
	// AllowDuplicates permits adding a record whose name equals an
	// existing record's.
	AllowDuplicates bool

	// ConvertExtractedEOL selects when line-ending conversion runs on
	// extraction.
	ConvertExtractedEOL ConvertMode

	// DataCompression selects the target codec for newly added data
	// threads. It is consulted by Archive.AddThread only when the AddMod
	// passed to it leaves TargetFormat at its zero value
	// (ThreadFormatUnknown); callers of Record.AddThread directly, or who
	// set TargetFormat themselves, bypass it.
	DataCompression ThreadFormat

	// DiscardWrapper strips any Binary II / SEA wrapper at the next
	// flush.
	DiscardWrapper bool

	// EOLTarget is the line ending conversion produces.
	EOLTarget EOLTarget

	// HandleExisting controls Archive.AddRecord's behavior when a record of
	// the same name already exists and AllowDuplicates is false.
	HandleExisting HandleExisting

	// IgnoreCRC skips all CRC verification on read.
	IgnoreCRC bool

	// MaskDataless hides records with no data threads from enumeration.
	MaskDataless bool

	// MimicShk is the single switch for ShrinkIt compatibility quirks
	// (spec.md §9 "mimic-shk quirks"). Its only effect is that an empty
	// default comment thread is added to the first new record if it has
	// none; it does not change any LZC threshold and writes no extra
	// trailing byte after LZW threads.
	MimicShk bool

	// ModifyOrig permits the in-place flush path when eligible.
	ModifyOrig bool

	// OnlyUpdateOlder rejects update sources no newer than the target.
	OnlyUpdateOlder bool

	// StripHighASCII applies high-bit stripping during EOL conversion.
	StripHighASCII bool

	// JunkSkipMax bounds how many leading bytes are scanned for the NuFX
	// magic (spec.md §4.3).
	JunkSkipMax int

	// IgnoreLZW2Len names the option that skips validating the LZW/2
	// per-block length field. No code reads it: the LZW/2 block reader
	// performs no length validation either way.
	IgnoreLZW2Len bool

	// HandleBadMac names the opt-in for the historical big-endian
	// producer's swapped LZW/2 length fields (spec.md §9 "bad-Mac
	// tolerance"). It is never auto-detected, and no code reads it, so
	// setting it has no effect on reading or writing.
	HandleBadMac bool
}

// DefaultOptions returns the engine's defaults.
func DefaultOptions() Options {
	return Options{
		DataCompression: ThreadFormatStored,
		EOLTarget:       EOLTargetLF,
		JunkSkipMax:     2048,
		ModifyOrig:      true,
	}
}
