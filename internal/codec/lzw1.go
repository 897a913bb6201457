package codec

import (
	"github.com/shrinkit/nufx/internal/byteio"
	"github.com/shrinkit/nufx/internal/datasrc"
	"github.com/shrinkit/nufx/internal/nuerr"
)

// lzw1BlockSize is the uncompressed-content size every LZW/1 block is
// padded to, for chunk-CRC purposes (spec.md §6, §9 "LZW/1 last-block
// padding" open question).
const lzw1BlockSize = 4096

// lzw1BlockHeader is the per-block header preceding RLE/LZW data. The
// ChunkCRC field is only present (and only meaningful) on the first block
// of a thread — spec.md §6: "2-byte little-endian chunk-CRC (first block
// only)".
type lzw1BlockHeader struct {
	ChunkCRC     uint16 // first block only
	HasChunkCRC  bool
	VolumeNumber uint8
	RLEEscape    uint8
	PostRLELen   uint16
	LZWUsed      uint8
}

func writeLZW1BlockHeader(w *byteio.Writer, h lzw1BlockHeader) error {
	if h.HasChunkCRC {
		if err := w.WriteU16(h.ChunkCRC); err != nil {
			return err
		}
	}
	if err := w.WriteU8(h.VolumeNumber); err != nil {
		return err
	}
	if err := w.WriteU8(h.RLEEscape); err != nil {
		return err
	}
	if err := w.WriteU16(h.PostRLELen); err != nil {
		return err
	}
	return w.WriteU8(h.LZWUsed)
}

func readLZW1BlockHeader(r *byteio.Reader, first bool) (lzw1BlockHeader, error) {
	var h lzw1BlockHeader
	h.HasChunkCRC = first
	if first {
		crc, err := r.ReadU16()
		if err != nil {
			return h, err
		}
		h.ChunkCRC = crc
	}
	vol, err := r.ReadU8()
	if err != nil {
		return h, err
	}
	h.VolumeNumber = vol
	esc, err := r.ReadU8()
	if err != nil {
		return h, err
	}
	h.RLEEscape = esc
	ln, err := r.ReadU16()
	if err != nil {
		return h, err
	}
	h.PostRLELen = ln
	used, err := r.ReadU8()
	if err != nil {
		return h, err
	}
	h.LZWUsed = used
	return h, nil
}

// lzw1ChunkCRC computes the chunk CRC over a block's content padded with
// zero bytes to lzw1BlockSize, independently of the thread CRC (spec.md §9:
// "do not unify" the two CRCs).
func lzw1ChunkCRC(block []byte) uint16 {
	crc := byteio.InitialChunkCRC
	crc = byteio.UpdateCRCBytes(crc, block)
	if len(block) < lzw1BlockSize {
		crc = byteio.UpdateCRCBytes(crc, make([]byte, lzw1BlockSize-len(block)))
	}
	return crc
}

// lzw1Core performs the RLE+LZW entropy coding of a single 4096-byte block.
// Per spec.md §1/§9, the compression algorithm internals are an external
// collaborator — only the framing contract is specified here. This single
// isolated function always fails with KindUnsupportedFeature. Around it,
// block sizing, the block-header layout and the chunk-CRC helper exist,
// but compressLZW1 only runs the thread CRC and fails with
// KindUnsupportedFeature, as does expandLZW1, so no LZW/1 thread is ever
// written or read.
func lzw1Core(block []byte) (compressed []byte, usedLZW bool, err error) {
	return nil, false, nuerr.New(nuerr.KindUnsupportedFeature, nil,
		"LZW/1 entropy coding is out of scope; only the block framing is implemented")
}

func compressLZW1(straw *Straw, sink datasrc.Sink, srcLen int64) (CompressResult, error) {
	threadCRC := byteio.InitialThreadCRC
	var dstLen int64
	buf := make([]byte, lzw1BlockSize)
	remaining := srcLen
	first := true
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		got, err := straw.ReadN(buf, int(n))
		if err != nil {
			return CompressResult{}, nuerr.New(nuerr.KindFileRead, err, "lzw1-compress read")
		}
		threadCRC = byteio.UpdateCRCBytes(threadCRC, buf[:got])

		_, _, err = lzw1Core(buf[:got])
		if err != nil {
			return CompressResult{}, err
		}
		first = false
		remaining -= int64(got)
	}
	_ = first
	return CompressResult{DstLen: dstLen, CRC: threadCRC}, nuerr.New(nuerr.KindUnsupportedFeature, nil,
		"LZW/1 compression body is out of scope")
}

func expandLZW1(straw *Straw, funnel *Funnel, compLen, expectedUncompLen int64) (uint16, error) {
	return 0, nuerr.New(nuerr.KindUnsupportedFeature, nil,
		"LZW/1 expansion body is out of scope")
}
