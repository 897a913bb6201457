package codec

import (
	"io"

	"github.com/shrinkit/nufx/internal/byteio"
	"github.com/shrinkit/nufx/internal/datasrc"
	"github.com/shrinkit/nufx/internal/nuerr"
)

// compressStored is the identity codec: it copies srcLen bytes verbatim
// from straw to sink while computing the uncompressed CRC. It is both a
// first-class target format and the fallback target of every other codec.
func compressStored(straw *Straw, sink datasrc.Sink, srcLen int64) (CompressResult, error) {
	buf := make([]byte, 32*1024)
	crc := byteio.InitialThreadCRC
	var remaining = srcLen
	var written int64
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		got, err := straw.ReadN(buf, int(n))
		if err != nil {
			return CompressResult{}, nuerr.New(nuerr.KindFileRead, err, "stored-compress read")
		}
		crc = byteio.UpdateCRCBytes(crc, buf[:got])
		if _, err := sink.PutBlock(buf[:got]); err != nil {
			return CompressResult{}, err
		}
		written += int64(got)
		remaining -= int64(got)
	}
	return CompressResult{DstLen: written, CRC: crc}, nil
}

// expandStored copies compLen (== expectedUncompLen) bytes through funnel,
// recomputing the CRC over the bytes read from straw, before any EOL
// conversion the funnel performs (spec.md §4.5's "uncompressed CRC").
func expandStored(straw *Straw, funnel *Funnel, compLen, expectedUncompLen int64) (uint16, error) {
	if compLen != expectedUncompLen {
		return 0, nuerr.New(nuerr.KindBadData, nil,
			"stored thread compLen %d != expectedUncompLen %d", compLen, expectedUncompLen)
	}
	buf := make([]byte, 32*1024)
	crc := byteio.InitialThreadCRC
	var remaining = expectedUncompLen
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		got, err := straw.ReadN(buf, int(n))
		if err != nil && err != io.EOF {
			return 0, nuerr.New(nuerr.KindFileRead, err, "stored-expand read")
		}
		crc = byteio.UpdateCRCBytes(crc, buf[:got])
		if _, err := funnel.Write(buf[:got]); err != nil {
			return 0, err
		}
		remaining -= int64(got)
	}
	return crc, nil
}
