package nufx

import (
	"github.com/shrinkit/nufx/internal/byteio"
)

// recordHeaderMagic is the literal 4-byte record-header magic (spec.md §6).
var recordHeaderMagic = [4]byte{0x4E, 0xF5, 0xE6, 0xD8}

// threadHeaderSize is the fixed on-disk size of one thread header (spec.md
// §6: "Thread header (16 bytes)").
const threadHeaderSize = 16

// recordHeaderFixedSize is the byte count of the record header up to and
// including the option-list-size field, i.e. everything before the
// variable-length option-list payload, extra bytes, and filename.
const recordHeaderFixedSize = 4 + 2 + 2 + 2 + 4 + 2 + 2 + 4 + 4 + 4 + 2 + 8 + 8 + 8 + 2

// decodeRecordHeader reads one record header (base attributes, optional
// GS/OS option list, optional extra bytes, optional header-resident
// filename, then the thread-header array) starting at the current reader
// position (spec.md §4.3).
func decodeRecordHeader(r *byteio.Reader, ignoreCRC bool) (Record, error) {
	startPos := r.Pos()

	magic, err := r.ReadBytes(4)
	if err != nil {
		return Record{}, err
	}
	if magic[0] != recordHeaderMagic[0] || magic[1] != recordHeaderMagic[1] ||
		magic[2] != recordHeaderMagic[2] || magic[3] != recordHeaderMagic[3] {
		return Record{}, newErr(KindRecordHeaderNotFound, nil, "record header magic mismatch: got %x", magic)
	}

	var rec Record
	var crc uint16 // accumulated starting right after the CRC field itself

	storedCRC, err := r.ReadU16()
	if err != nil {
		return Record{}, err
	}

	rec.AttribCount, err = r.ReadU16CRC(&crc)
	if err != nil {
		return Record{}, err
	}
	rec.Version, err = r.ReadU16CRC(&crc)
	if err != nil {
		return Record{}, err
	}
	totalThreads, err := r.ReadU32CRC(&crc)
	if err != nil {
		return Record{}, err
	}
	fsID, err := r.ReadU16CRC(&crc)
	if err != nil {
		return Record{}, err
	}
	rec.FilesystemID = uint8(fsID)
	sep, err := r.ReadU16CRC(&crc)
	if err != nil {
		return Record{}, err
	}
	rec.Separator = uint8(sep)
	rec.AccessFlags, err = r.ReadU32CRC(&crc)
	if err != nil {
		return Record{}, err
	}
	rec.FileType, err = r.ReadU32CRC(&crc)
	if err != nil {
		return Record{}, err
	}
	rec.AuxType, err = r.ReadU32CRC(&crc)
	if err != nil {
		return Record{}, err
	}
	rec.StorageType, err = r.ReadU16CRC(&crc)
	if err != nil {
		return Record{}, err
	}
	rec.Created, err = r.ReadDateTimeCRC(&crc)
	if err != nil {
		return Record{}, err
	}
	rec.Modified, err = r.ReadDateTimeCRC(&crc)
	if err != nil {
		return Record{}, err
	}
	rec.Archived, err = r.ReadDateTimeCRC(&crc)
	if err != nil {
		return Record{}, err
	}

	optionListSize, err := r.ReadU16CRC(&crc)
	if err != nil {
		return Record{}, err
	}
	if optionListSize > 0 {
		rec.OptionList, err = r.ReadBytesCRC(int(optionListSize), &crc)
		if err != nil {
			return Record{}, err
		}
	}

	// Whatever lies between the option list and the filename-length field,
	// per attrib-count, is preserved verbatim (spec.md §4.3).
	consumed := int(r.Pos() - startPos)
	if extra := int(rec.AttribCount) - consumed; extra > 0 {
		rec.ExtraBytes, err = r.ReadBytesCRC(extra, &crc)
		if err != nil {
			return Record{}, err
		}
	}

	filenameLen, err := r.ReadU16CRC(&crc)
	if err != nil {
		return Record{}, err
	}
	if filenameLen > 0 {
		name, err := r.ReadBytesCRC(int(filenameLen), &crc)
		if err != nil {
			return Record{}, err
		}
		rec.HeaderFilename = string(name)
	}

	rec.Threads = make([]Thread, totalThreads)
	for i := range rec.Threads {
		t := &rec.Threads[i]
		t.ThreadIdx = uint32(i)
		class, err := r.ReadU16CRC(&crc)
		if err != nil {
			return Record{}, err
		}
		t.Class = ThreadClass(class)
		format, err := r.ReadU16CRC(&crc)
		if err != nil {
			return Record{}, err
		}
		t.Format = ThreadFormat(format)
		kind, err := r.ReadU16CRC(&crc)
		if err != nil {
			return Record{}, err
		}
		t.Kind = ThreadKind(kind)
		t.CRC, err = r.ReadU16CRC(&crc)
		if err != nil {
			return Record{}, err
		}
		t.UncompressedEOF, err = r.ReadU32CRC(&crc)
		if err != nil {
			return Record{}, err
		}
		t.CompressedEOF, err = r.ReadU32CRC(&crc)
		if err != nil {
			return Record{}, err
		}
	}

	if !ignoreCRC && crc != storedCRC {
		return Record{}, newErr(KindBadRecordCRC, nil,
			"record header CRC mismatch: got %#04x, want %#04x", storedCRC, crc)
	}
	rec.HeaderCRC = storedCRC
	rec.FileOffset = startPos
	rec.RawHeaderLen = int(r.Pos() - startPos)
	return rec, nil
}

// encodeRecordHeader writes rec's header followed by its thread-header
// array, recomputing the CRC and the attrib-count/thread-count fields from
// rec's current contents.
func encodeRecordHeader(w *byteio.Writer, rec *Record) error {
	var buf recordHeaderBuffer
	bw := byteio.NewWriter(&buf)
	var crc uint16

	attribCount := recordHeaderFixedSize + len(rec.OptionList) + len(rec.ExtraBytes)
	rec.AttribCount = uint16(attribCount)

	bw.WriteU16CRC(rec.AttribCount, &crc)
	bw.WriteU16CRC(rec.Version, &crc)
	bw.WriteU32CRC(uint32(len(rec.Threads)), &crc)
	bw.WriteU16CRC(uint16(rec.FilesystemID), &crc)
	bw.WriteU16CRC(uint16(rec.Separator), &crc)
	bw.WriteU32CRC(rec.AccessFlags, &crc)
	bw.WriteU32CRC(rec.FileType, &crc)
	bw.WriteU32CRC(rec.AuxType, &crc)
	bw.WriteU16CRC(rec.StorageType, &crc)
	bw.WriteDateTimeCRC(rec.Created, &crc)
	bw.WriteDateTimeCRC(rec.Modified, &crc)
	bw.WriteDateTimeCRC(rec.Archived, &crc)
	bw.WriteU16CRC(uint16(len(rec.OptionList)), &crc)
	if len(rec.OptionList) > 0 {
		bw.WriteBytesCRC(rec.OptionList, &crc)
	}
	if len(rec.ExtraBytes) > 0 {
		bw.WriteBytesCRC(rec.ExtraBytes, &crc)
	}

	filename := rec.HeaderFilename
	if rec.FilenameFromThread != "" {
		filename = ""
	}
	bw.WriteU16CRC(uint16(len(filename)), &crc)
	if len(filename) > 0 {
		bw.WriteBytesCRC([]byte(filename), &crc)
	}

	for i := range rec.Threads {
		t := &rec.Threads[i]
		bw.WriteU16CRC(uint16(t.Class), &crc)
		bw.WriteU16CRC(uint16(t.Format), &crc)
		bw.WriteU16CRC(uint16(t.Kind), &crc)
		bw.WriteU16CRC(t.CRC, &crc)
		bw.WriteU32CRC(t.UncompressedEOF, &crc)
		bw.WriteU32CRC(t.CompressedEOF, &crc)
	}

	rec.HeaderCRC = crc

	if err := w.WriteBytes(recordHeaderMagic[:]); err != nil {
		return err
	}
	if err := w.WriteU16(rec.HeaderCRC); err != nil {
		return err
	}
	return w.WriteBytes(buf)
}

// recordHeaderBuffer is a minimal io.Writer sink for the CRC pre-pass in
// encodeRecordHeader, avoiding a second dependency on bytes.Buffer for what
// is otherwise a plain append.
type recordHeaderBuffer []byte

func (b *recordHeaderBuffer) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}
