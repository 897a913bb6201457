package nufx

import (
	"bytes"
	"time"

	"github.com/shrinkit/nufx/internal/byteio"
)

// nowDateTime converts the current time into the 8-byte ProDOS-style tuple
// used throughout NuFX headers. Host/Apple-II calendar translation beyond
// this best-effort mapping is out of scope (spec.md §1 Non-goals).
func nowDateTime() byteio.DateTime {
	now := time.Now()
	year := now.Year() - 2000
	if year < 0 {
		year = 0
	}
	return byteio.DateTime{
		Second:  uint8(now.Second()),
		Minute:  uint8(now.Minute()),
		Hour:    uint8(now.Hour()),
		Year:    uint8(year),
		Day:     uint8(now.Day()),
		Month:   uint8(now.Month()),
		Weekday: uint8(now.Weekday()),
	}
}

// masterHeaderSize is the fixed on-disk size of the master header
// (spec.md §6).
const masterHeaderSize = 48

// supportedMasterVersion is the highest master-header version this
// implementation understands (spec.md §4.3: "check the version is ≤ the
// implementation's supported version").
const supportedMasterVersion = 2

// nufxMagicBytes is the literal 6-byte magic (spec.md §6): "NuFile" with
// the high bit set on alternating bytes, producing this exact sequence.
var nufxMagicBytes = [6]byte{0x4E, 0xF5, 0xFE, 0xE9, 0x6C, 0xE5}

// MasterHeader is the fixed 48-byte archive preamble (spec.md §3, §6).
type MasterHeader struct {
	CRC          uint16
	TotalRecords uint32
	Created      byteio.DateTime
	Modified     byteio.DateTime
	MasterEOF    uint32
	Version      uint16
}

// masterHeaderCRC computes the CRC over bytes 8..47 of the header with the
// CRC field (bytes 6-7) zeroed during computation (spec.md §6: "CRC covers
// bytes 8..47 with bytes 6..7 zeroed during computation"; confirmed against
// original_source/nufxlib/ArchiveIO.c).
func masterHeaderCRC(h MasterHeader) uint16 {
	var buf bytes.Buffer
	w := byteio.NewWriter(&buf)
	w.WriteU32(h.TotalRecords)
	w.WriteDateTime(h.Created)
	w.WriteDateTime(h.Modified)
	w.WriteU32(h.MasterEOF)
	w.WriteU16(h.Version)
	buf.Write(make([]byte, 8)) // 8 reserved bytes
	buf.Write(make([]byte, 6)) // 6 trailing reserved bytes (header ends at byte 47)
	// The master header CRC is seeded at 0x0000, not the thread-CRC's
	// 0xFFFF — confirmed against original_source/nufxlib/MiscUtils.c, which
	// uses a distinct initial value per context.
	return byteio.UpdateCRCBytes(0x0000, buf.Bytes())
}

// encodeMasterHeader writes h in on-disk order, computing and filling in
// the CRC field.
func encodeMasterHeader(w *byteio.Writer, h MasterHeader) error {
	h.CRC = masterHeaderCRC(h)
	if err := w.WriteBytes(nufxMagicBytes[:]); err != nil {
		return err
	}
	if err := w.WriteU16(h.CRC); err != nil {
		return err
	}
	if err := w.WriteU32(h.TotalRecords); err != nil {
		return err
	}
	if err := w.WriteDateTime(h.Created); err != nil {
		return err
	}
	if err := w.WriteDateTime(h.Modified); err != nil {
		return err
	}
	if err := w.WriteU32(h.MasterEOF); err != nil {
		return err
	}
	if err := w.WriteU16(h.Version); err != nil {
		return err
	}
	if err := w.WriteBytes(make([]byte, 8)); err != nil { // reserved
		return err
	}
	return w.WriteBytes(make([]byte, 6)) // trailing reserved
}

// decodeMasterHeader reads and validates a master header: magic, CRC (per
// the ignoreCRC knob), and version (spec.md §4.3).
func decodeMasterHeader(r *byteio.Reader, ignoreCRC bool) (MasterHeader, error) {
	magic, err := r.ReadBytes(6)
	if err != nil {
		return MasterHeader{}, err
	}
	if !bytes.Equal(magic, nufxMagicBytes[:]) {
		return MasterHeader{}, newErr(KindNotNuFX, nil, "master header magic mismatch: got %x", magic)
	}
	var h MasterHeader
	h.CRC, err = r.ReadU16()
	if err != nil {
		return MasterHeader{}, err
	}
	h.TotalRecords, err = r.ReadU32()
	if err != nil {
		return MasterHeader{}, err
	}
	h.Created, err = r.ReadDateTime()
	if err != nil {
		return MasterHeader{}, err
	}
	h.Modified, err = r.ReadDateTime()
	if err != nil {
		return MasterHeader{}, err
	}
	h.MasterEOF, err = r.ReadU32()
	if err != nil {
		return MasterHeader{}, err
	}
	h.Version, err = r.ReadU16()
	if err != nil {
		return MasterHeader{}, err
	}
	if _, err := r.ReadBytes(8); err != nil { // reserved
		return MasterHeader{}, err
	}
	if _, err := r.ReadBytes(6); err != nil { // trailing reserved
		return MasterHeader{}, err
	}

	if !ignoreCRC {
		want := masterHeaderCRC(h)
		if want != h.CRC {
			return MasterHeader{}, newErr(KindBadMasterCRC, nil,
				"master header CRC mismatch: got %#04x, want %#04x", h.CRC, want)
		}
	}
	if h.Version > supportedMasterVersion {
		return MasterHeader{}, newErr(KindBadMasterVersion, nil,
			"master header version %d exceeds supported version %d", h.Version, supportedMasterVersion)
	}
	return h, nil
}
