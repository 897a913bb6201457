package codec

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/shrinkit/nufx/internal/byteio"
	"github.com/shrinkit/nufx/internal/datasrc"
	"github.com/shrinkit/nufx/internal/nuerr"
)

// compressDeflate backs FormatDeflate with klauspost/compress/flate, the
// teacher's own compression dependency (used for the initramfs pipeline in
// cmd/distri/initrd.go and internal/build/build.go), in place of the
// stdlib compress/flate it is a drop-in, faster replacement for.
func compressDeflate(straw *Straw, sink datasrc.Sink, srcLen int64) (CompressResult, error) {
	var dstLen int64
	countingSink := &countingWriter{sink: sink}
	fw, err := flate.NewWriter(countingSink, flate.DefaultCompression)
	if err != nil {
		return CompressResult{}, nuerr.New(nuerr.KindInternal, err, "create deflate writer")
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
			return CompressResult{}, nuerr.New(nuerr.KindFileRead, err, "deflate-compress read")
		}
		crc = byteio.UpdateCRCBytes(crc, buf[:got])
		if _, err := fw.Write(buf[:got]); err != nil {
			return CompressResult{}, nuerr.New(nuerr.KindFileWrite, err, "deflate write")
		}
		remaining -= int64(got)
	}
	if err := fw.Close(); err != nil {
		return CompressResult{}, nuerr.New(nuerr.KindFileWrite, err, "close deflate writer")
	}
	dstLen = countingSink.n
	return CompressResult{DstLen: dstLen, CRC: crc}, nil
}

func expandDeflate(straw *Straw, funnel *Funnel, compLen, expectedUncompLen int64) (uint16, error) {
	lr := io.LimitReader(straw, compLen)
	fr := flate.NewReader(lr)
	defer fr.Close()

	buf := make([]byte, 32*1024)
	crc := byteio.InitialThreadCRC
	var written int64
	for written < expectedUncompLen {
		n, err := fr.Read(buf)
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
			return 0, nuerr.New(nuerr.KindBadData, err, "deflate-expand read")
		}
	}
	if written != expectedUncompLen {
		return 0, nuerr.New(nuerr.KindBadData, nil,
			"deflate expansion produced %d bytes, expected %d", written, expectedUncompLen)
	}
	return crc, nil
}

// countingWriter tracks how many compressed bytes were written to sink,
// since flate.Writer only exposes a plain io.Writer.
type countingWriter struct {
	sink datasrc.Sink
	n    int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.sink.PutBlock(p)
	c.n += int64(n)
	return n, err
}
