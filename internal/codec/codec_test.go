package codec

import (
	"bytes"
	"testing"

	"github.com/shrinkit/nufx/internal/byteio"
	"github.com/shrinkit/nufx/internal/datasrc"
)

func roundTrip(t *testing.T, format Format, data []byte) (gotFormat Format, expanded []byte) {
	t.Helper()
	src := datasrc.NewBufferSource(data, datasrc.FormatUnknown)
	straw := NewStraw(src, int64(len(data)), nil)
	if err := straw.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	sink := datasrc.NewBufferSink(0)
	outcome, err := CompressDispatch(format, straw, sink, int64(len(data)))
	if err != nil {
		t.Fatalf("CompressDispatch(%v): %v", format, err)
	}

	expandSrc := datasrc.NewStreamSource(bytes.NewReader(sink.Bytes()), 0, outcome.Result.DstLen, outcome.Format)
	expandStraw := NewStraw(expandSrc, outcome.Result.DstLen, nil)
	if err := expandStraw.Prepare(); err != nil {
		t.Fatalf("expand Prepare: %v", err)
	}
	out := datasrc.NewBufferSink(0)
	funnel := NewFunnel(out, nil, int64(len(data)), nil)
	crc, err := ExpandDispatch(outcome.Format, expandStraw, funnel, outcome.Result.DstLen, int64(len(data)))
	if err != nil {
		t.Fatalf("ExpandDispatch(%v): %v", outcome.Format, err)
	}
	if crc != outcome.Result.CRC {
		t.Fatalf("expand CRC %#04x != compress CRC %#04x", crc, outcome.Result.CRC)
	}
	return outcome.Format, out.Bytes()
}

func TestStoredRoundTrip(t *testing.T) {
	data := []byte("HELLO WORLD")
	gotFormat, expanded := roundTrip(t, FormatStored, data)
	if gotFormat != FormatStored {
		t.Fatalf("format = %v, want stored", gotFormat)
	}
	if !bytes.Equal(expanded, data) {
		t.Fatalf("expanded = %q, want %q", expanded, data)
	}
}

func TestDeflateRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200)
	gotFormat, expanded := roundTrip(t, FormatDeflate, data)
	if gotFormat != FormatDeflate {
		t.Fatalf("format = %v, want deflate (highly compressible input should not fall back)", gotFormat)
	}
	if !bytes.Equal(expanded, data) {
		t.Fatal("round-tripped bytes differ")
	}
}

func TestBzip2RoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefghijklmnopqrstuvwxyz"), 500)
	gotFormat, expanded := roundTrip(t, FormatBzip2, data)
	if gotFormat != FormatBzip2 {
		t.Fatalf("format = %v, want bzip2", gotFormat)
	}
	if !bytes.Equal(expanded, data) {
		t.Fatal("round-tripped bytes differ")
	}
}

func TestFallbackToStored(t *testing.T) {
	// spec.md §8 scenario 2: a 5-byte input must not shrink
	// under deflate once framing overhead is included, so the persisted
	// format must fall back to stored.
	data := []byte("aaaaa")
	gotFormat, expanded := roundTrip(t, FormatDeflate, data)
	if gotFormat != FormatStored {
		t.Fatalf("format = %v, want stored (fallback law)", gotFormat)
	}
	if !bytes.Equal(expanded, data) {
		t.Fatalf("expanded = %q, want %q", expanded, data)
	}
}

func TestEmptySourceShortCircuit(t *testing.T) {
	src := datasrc.NewBufferSource(nil, datasrc.FormatUnknown)
	straw := NewStraw(src, 0, nil)
	if err := straw.Prepare(); err != nil {
		t.Fatal(err)
	}
	sink := datasrc.NewBufferSink(0)
	outcome, err := CompressDispatch(FormatDeflate, straw, sink, 0)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Format != FormatStored || outcome.Result.DstLen != 0 || outcome.Result.CRC != byteio.InitialThreadCRC {
		t.Fatalf("empty source outcome = %+v, want stored/0/0xFFFF", outcome)
	}
}

func TestLZW1BlockHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := byteio.NewWriter(&buf)
	h := lzw1BlockHeader{ChunkCRC: 0x1234, HasChunkCRC: true, VolumeNumber: 1, RLEEscape: 0xDB, PostRLELen: 99, LZWUsed: 1}
	if err := writeLZW1BlockHeader(w, h); err != nil {
		t.Fatal(err)
	}
	r := byteio.NewReader(&buf, false)
	got, err := readLZW1BlockHeader(r, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestLZW1ChunkCRCPadsToBlockSize(t *testing.T) {
	short := lzw1ChunkCRC([]byte("hi"))
	padded := make([]byte, lzw1BlockSize)
	copy(padded, "hi")
	direct := byteio.InitialChunkCRC
	direct = byteio.UpdateCRCBytes(direct, padded)
	if short != direct {
		t.Fatalf("lzw1ChunkCRC did not pad to %d bytes: got %#04x, want %#04x", lzw1BlockSize, short, direct)
	}
}

func TestLZW2BlockHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := byteio.NewWriter(&buf)
	h := lzw2BlockHeader{PostRLELen: 200, LZWUsed: true, LZWField: 42}
	if err := writeLZW2BlockHeader(w, h); err != nil {
		t.Fatal(err)
	}
	r := byteio.NewReader(&buf, false)
	got, err := readLZW2BlockHeader(r, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestUnsupportedFormatsSurfaceAsUnsupportedFeature(t *testing.T) {
	for _, f := range []Format{FormatHuffSQ, FormatLZC12, FormatLZC16} {
		src := datasrc.NewBufferSource([]byte("some data"), datasrc.FormatUnknown)
		straw := NewStraw(src, 9, nil)
		if err := straw.Prepare(); err != nil {
			t.Fatal(err)
		}
		sink := datasrc.NewBufferSink(0)
		if _, err := CompressDispatch(f, straw, sink, 9); err == nil {
			t.Fatalf("CompressDispatch(%v) should fail: entropy coding is out of scope", f)
		}
	}
}
