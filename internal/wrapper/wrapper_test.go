package wrapper

import "testing"

func TestDetectNoWrapper(t *testing.T) {
	header := append([]byte{}, nufxMagic...)
	header = append(header, make([]byte, 64)...)
	kind, off, err := Detect(header, 128)
	if err != nil {
		t.Fatal(err)
	}
	if kind != KindNone || off != 0 {
		t.Fatalf("Detect() = %v, %d, want KindNone, 0", kind, off)
	}
}

func TestDetectMagicAfterJunk(t *testing.T) {
	junk := make([]byte, 10)
	header := append(junk, nufxMagic...)
	kind, off, err := Detect(header, 64)
	if err != nil {
		t.Fatal(err)
	}
	if kind != KindNone || off != 10 {
		t.Fatalf("Detect() = %v, %d, want KindNone, 10", kind, off)
	}
}

func TestDetectBinaryIIWrapper(t *testing.T) {
	header := make([]byte, binaryIIBlockSize)
	header[0] = 0xC3 // some non-zero access byte
	header[1] = 0x00
	kind, off, err := Detect(header, 128)
	if err != nil {
		t.Fatal(err)
	}
	if kind != KindBinaryII || off != binaryIIBlockSize {
		t.Fatalf("Detect() = %v, %d, want KindBinaryII, %d", kind, off, binaryIIBlockSize)
	}
}

func TestDetectSelfExtractingWrapper(t *testing.T) {
	header := make([]byte, SEAMasterHeaderOffset+len(nufxMagic))
	copy(header[SEAMasterHeaderOffset:], nufxMagic)
	kind, off, err := Detect(header, 128)
	if err != nil {
		t.Fatal(err)
	}
	if kind != KindSelfExtracting || off != SEAMasterHeaderOffset {
		t.Fatalf("Detect() = %v, %d, want KindSelfExtracting, %d", kind, off, SEAMasterHeaderOffset)
	}
}

func TestDetectSelfExtractingRequiresFullOffset(t *testing.T) {
	header := make([]byte, SEAMasterHeaderOffset) // one byte short
	kind, off, err := Detect(header, 128)
	if err != nil {
		t.Fatal(err)
	}
	if kind != KindNone || off != 0 {
		t.Fatalf("Detect() with a short header = %v, %d, want KindNone, 0", kind, off)
	}
}

func TestPadTo128(t *testing.T) {
	cases := map[int64]int64{0: 0, 1: 128, 127: 128, 128: 128, 129: 256}
	for in, want := range cases {
		if got := PadTo128(in); got != want {
			t.Errorf("PadTo128(%d) = %d, want %d", in, got, want)
		}
	}
}
