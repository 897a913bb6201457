package nufx

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shrinkit/nufx/internal/byteio"
)

func TestMasterHeaderRoundTrip(t *testing.T) {
	h := MasterHeader{
		TotalRecords: 3,
		Created:      byteio.DateTime{Year: 26, Month: 7, Day: 31},
		Modified:     byteio.DateTime{Year: 26, Month: 7, Day: 31, Hour: 12},
		MasterEOF:    1024,
		Version:      2,
	}

	var buf bytes.Buffer
	if err := encodeMasterHeader(byteio.NewWriter(&buf), h); err != nil {
		t.Fatalf("encodeMasterHeader: %v", err)
	}
	if buf.Len() != masterHeaderSize {
		t.Fatalf("encoded length = %d, want %d", buf.Len(), masterHeaderSize)
	}

	got, err := decodeMasterHeader(byteio.NewReader(&buf, false), false)
	if err != nil {
		t.Fatalf("decodeMasterHeader: %v", err)
	}
	// CRC is computed by encode and verified by decode; exclude it from the
	// structural comparison since the test doesn't hand-compute it.
	want := h
	want.CRC = got.CRC
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("master header round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMasterHeaderBadMagic(t *testing.T) {
	buf := make([]byte, masterHeaderSize)
	copy(buf, []byte("XXXXXX"))
	_, err := decodeMasterHeader(byteio.NewReader(bytes.NewReader(buf), false), true)
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestMasterHeaderCRCMismatch(t *testing.T) {
	h := MasterHeader{TotalRecords: 1, Version: 1}
	var buf bytes.Buffer
	if err := encodeMasterHeader(byteio.NewWriter(&buf), h); err != nil {
		t.Fatalf("encodeMasterHeader: %v", err)
	}
	corrupt := buf.Bytes()
	corrupt[6] ^= 0xFF // flip a CRC byte

	_, err := decodeMasterHeader(byteio.NewReader(bytes.NewReader(corrupt), false), false)
	if err == nil {
		t.Fatal("expected CRC mismatch error")
	}

	// ignoreCRC must bypass the check.
	if _, err := decodeMasterHeader(byteio.NewReader(bytes.NewReader(corrupt), false), true); err != nil {
		t.Errorf("decodeMasterHeader with ignoreCRC: %v", err)
	}
}

func TestMasterHeaderVersionTooNew(t *testing.T) {
	h := MasterHeader{Version: supportedMasterVersion + 1}
	var buf bytes.Buffer
	if err := encodeMasterHeader(byteio.NewWriter(&buf), h); err != nil {
		t.Fatalf("encodeMasterHeader: %v", err)
	}
	_, err := decodeMasterHeader(byteio.NewReader(&buf, false), false)
	if err == nil {
		t.Fatal("expected version-too-new error")
	}
}
