package byteio

import (
	"io"
	"time"

	"github.com/shrinkit/nufx/internal/nuerr"
)

// DateTime is the 8-byte ProDOS-style date/time tuple used throughout NuFX
// headers: second, minute, hour, year, day, month, extra, weekday, in that
// on-disk order.
type DateTime struct {
	Second, Minute, Hour uint8
	Year                 uint8
	Day, Month           uint8
	Extra                uint8
	Weekday              uint8
}

// Reader wraps an io.Reader (seekable or not) with little-endian typed
// reads, each in a CRC-accumulating and non-accumulating form. Binding to
// io.Reader rather than *os.File lets the same code serve both the
// seekable archive file and a non-seekable streaming source, the way the
// teacher's squashfs.Reader binds to io.ReaderAt rather than *os.File.
type Reader struct {
	r io.Reader

	// streaming is true when backward/absolute seeks are illegal; forward
	// seeks are emulated by discarding bytes.
	streaming bool
	pos       int64
}

// NewReader wraps r. If streaming is true, only forward-relative
// SeekForward calls are legal.
func NewReader(r io.Reader, streaming bool) *Reader {
	return &Reader{r: r, streaming: streaming}
}

func (r *Reader) Pos() int64 { return r.pos }

// SeekForward discards n bytes, the only seek operation legal on a
// streaming source per spec.md §4.1.
func (r *Reader) SeekForward(n int64) error {
	if n < 0 {
		return nuerr.New(nuerr.KindFileSeek, nil, "negative forward seek %d", n)
	}
	if n == 0 {
		return nil
	}
	written, err := io.CopyN(io.Discard, r.r, n)
	r.pos += written
	if err != nil {
		return nuerr.New(nuerr.KindFileSeek, err, "forward seek of %d bytes", n)
	}
	return nil
}

// SeekAbsolute seeks to an absolute offset. It fails with KindFileSeek if
// the reader is streaming, per spec.md §4.1.
func (r *Reader) SeekAbsolute(off int64) error {
	if r.streaming {
		return nuerr.New(nuerr.KindFileSeek, nil, "absolute seek not legal on a streaming source")
	}
	seeker, ok := r.r.(io.Seeker)
	if !ok {
		return nuerr.New(nuerr.KindFileSeek, nil, "underlying reader is not seekable")
	}
	if _, err := seeker.Seek(off, io.SeekStart); err != nil {
		return nuerr.New(nuerr.KindFileSeek, err, "seek to offset %d", off)
	}
	r.pos = off
	return nil
}

func (r *Reader) readFull(p []byte) error {
	n, err := io.ReadFull(r.r, p)
	r.pos += int64(n)
	if err != nil {
		return nuerr.New(nuerr.KindFileRead, err, "short read: got %d of %d bytes", n, len(p))
	}
	return nil
}

// ReadU8/ReadU16/ReadU32 read unsigned little-endian integers. The CRC
// variants additionally fold the bytes read into *crc.

func (r *Reader) ReadU8() (uint8, error) {
	var buf [1]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (r *Reader) ReadU8CRC(crc *uint16) (uint8, error) {
	b, err := r.ReadU8()
	if err != nil {
		return 0, err
	}
	*crc = UpdateCRC(*crc, b)
	return b, nil
}

func (r *Reader) ReadU16() (uint16, error) {
	var buf [2]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

func (r *Reader) ReadU16CRC(crc *uint16) (uint16, error) {
	var buf [2]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	*crc = UpdateCRCBytes(*crc, buf[:])
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

func (r *Reader) ReadU32() (uint32, error) {
	var buf [4]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
}

func (r *Reader) ReadU32CRC(crc *uint16) (uint32, error) {
	var buf [4]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	*crc = UpdateCRCBytes(*crc, buf[:])
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
}

func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := r.readFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *Reader) ReadBytesCRC(n int, crc *uint16) ([]byte, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	*crc = UpdateCRCBytes(*crc, buf)
	return buf, nil
}

func (r *Reader) ReadDateTime() (DateTime, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return DateTime{}, err
	}
	return dateTimeFromBytes(b), nil
}

func (r *Reader) ReadDateTimeCRC(crc *uint16) (DateTime, error) {
	b, err := r.ReadBytesCRC(8, crc)
	if err != nil {
		return DateTime{}, err
	}
	return dateTimeFromBytes(b), nil
}

func dateTimeFromBytes(b []byte) DateTime {
	return DateTime{
		Second: b[0], Minute: b[1], Hour: b[2], Year: b[3],
		Day: b[4], Month: b[5], Extra: b[6], Weekday: b[7],
	}
}

// ToTime converts d to the host time.Time, the reverse of the nufx
// package's nowDateTime mapping (masterheader.go). Years below 100 are treated as 2000+Y,
// matching the ProDOS-epoch convention used throughout NuFX headers.
func (d DateTime) ToTime() time.Time {
	year := int(d.Year)
	if year < 100 {
		year += 2000
	}
	month := time.Month(d.Month)
	if month < time.January || month > time.December {
		month = time.January
	}
	return time.Date(year, month, int(d.Day), int(d.Hour), int(d.Minute), int(d.Second), 0, time.Local)
}

// Writer is the symmetric little-endian writer with CRC-accumulating and
// plain forms.
type Writer struct {
	w   io.Writer
	pos int64
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) Pos() int64 { return w.pos }

func (w *Writer) write(p []byte) error {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	if err != nil {
		return nuerr.New(nuerr.KindFileWrite, err, "short write: wrote %d of %d bytes", n, len(p))
	}
	return nil
}

func (w *Writer) WriteU8(v uint8) error { return w.write([]byte{v}) }

func (w *Writer) WriteU8CRC(v uint8, crc *uint16) error {
	*crc = UpdateCRC(*crc, v)
	return w.WriteU8(v)
}

func le16(v uint16) [2]byte { return [2]byte{byte(v), byte(v >> 8)} }
func le32(v uint32) [4]byte {
	return [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func (w *Writer) WriteU16(v uint16) error {
	b := le16(v)
	return w.write(b[:])
}

func (w *Writer) WriteU16CRC(v uint16, crc *uint16) error {
	b := le16(v)
	*crc = UpdateCRCBytes(*crc, b[:])
	return w.write(b[:])
}

func (w *Writer) WriteU32(v uint32) error {
	b := le32(v)
	return w.write(b[:])
}

func (w *Writer) WriteU32CRC(v uint32, crc *uint16) error {
	b := le32(v)
	*crc = UpdateCRCBytes(*crc, b[:])
	return w.write(b[:])
}

func (w *Writer) WriteBytes(p []byte) error { return w.write(p) }

func (w *Writer) WriteBytesCRC(p []byte, crc *uint16) error {
	*crc = UpdateCRCBytes(*crc, p)
	return w.write(p)
}

func (w *Writer) WriteDateTime(d DateTime) error {
	return w.WriteBytes(dateTimeToBytes(d))
}

func (w *Writer) WriteDateTimeCRC(d DateTime, crc *uint16) error {
	return w.WriteBytesCRC(dateTimeToBytes(d), crc)
}

func dateTimeToBytes(d DateTime) []byte {
	return []byte{d.Second, d.Minute, d.Hour, d.Year, d.Day, d.Month, d.Extra, d.Weekday}
}
