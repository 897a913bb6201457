package nufx

import "testing"

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.DataCompression != ThreadFormatStored {
		t.Errorf("DataCompression = %v, want stored", opts.DataCompression)
	}
	if opts.EOLTarget != EOLTargetLF {
		t.Errorf("EOLTarget = %v, want LF", opts.EOLTarget)
	}
	if opts.JunkSkipMax != 2048 {
		t.Errorf("JunkSkipMax = %d, want 2048", opts.JunkSkipMax)
	}
	if !opts.ModifyOrig {
		t.Error("ModifyOrig should default to true")
	}
	if opts.MimicShk {
		t.Error("MimicShk should default to false")
	}
	if opts.HandleBadMac {
		t.Error("HandleBadMac should never be on by default (spec.md §9: explicit opt-in only)")
	}
}
