package codec

import (
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/shrinkit/nufx/internal/byteio"
	"github.com/shrinkit/nufx/internal/datasrc"
	"github.com/shrinkit/nufx/internal/nuerr"
)

// compressBzip2 backs FormatBzip2. The standard library's compress/bzip2
// only decompresses; dsnet/compress/bzip2 is the library the example pack
// uses (nabbar-golib/archive, jddeal/go-nexrad) specifically to get a
// bzip2 writer.
func compressBzip2(straw *Straw, sink datasrc.Sink, srcLen int64) (CompressResult, error) {
	countingSink := &countingWriter{sink: sink}
	bw, err := bzip2.NewWriter(countingSink, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	if err != nil {
		return CompressResult{}, nuerr.New(nuerr.KindInternal, err, "create bzip2 writer")
	}

	buf := make([]byte, 32*1024)
	crc := byteio.InitialThreadCRC
	remaining := srcLen
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		got, err := straw.ReadN(buf, int(n))
		if err != nil {
			return CompressResult{}, nuerr.New(nuerr.KindFileRead, err, "bzip2-compress read")
		}
		crc = byteio.UpdateCRCBytes(crc, buf[:got])
		if _, err := bw.Write(buf[:got]); err != nil {
			return CompressResult{}, nuerr.New(nuerr.KindFileWrite, err, "bzip2 write")
		}
		remaining -= int64(got)
	}
	if err := bw.Close(); err != nil {
		return CompressResult{}, nuerr.New(nuerr.KindFileWrite, err, "close bzip2 writer")
	}
	return CompressResult{DstLen: countingSink.n, CRC: crc}, nil
}

func expandBzip2(straw *Straw, funnel *Funnel, compLen, expectedUncompLen int64) (uint16, error) {
	lr := io.LimitReader(straw, compLen)
	br, err := bzip2.NewReader(lr, nil)
	if err != nil {
		return 0, nuerr.New(nuerr.KindBadData, err, "create bzip2 reader")
	}
	defer br.Close()

	buf := make([]byte, 32*1024)
	crc := byteio.InitialThreadCRC
	var written int64
	for written < expectedUncompLen {
		n, err := br.Read(buf)
		if n > 0 {
			crc = byteio.UpdateCRCBytes(crc, buf[:n])
			if _, werr := funnel.Write(buf[:n]); werr != nil {
				return 0, werr
			}
			written += int64(n)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, nuerr.New(nuerr.KindBadData, err, "bzip2-expand read")
		}
	}
	if written != expectedUncompLen {
		return 0, nuerr.New(nuerr.KindBadData, nil,
			"bzip2 expansion produced %d bytes, expected %d", written, expectedUncompLen)
	}
	return crc, nil
}
