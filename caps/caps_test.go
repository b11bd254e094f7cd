package caps

import "testing"

func TestEncodeParseRoundTrip(t *testing.T) {
	want := Default()
	blob := Encode(want)
	got, err := Parse(blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SRAMSizeBytes != want.SRAMSizeBytes {
		t.Errorf("SRAMSizeBytes: got %d, want %d", got.SRAMSizeBytes, want.SRAMSizeBytes)
	}
	if got.NumSRAMs != want.NumSRAMs {
		t.Errorf("NumSRAMs: got %d, want %d", got.NumSRAMs, want.NumSRAMs)
	}
	if len(got.SupportedBlockConfigs) != len(want.SupportedBlockConfigs) {
		t.Fatalf("block configs: got %d, want %d", len(got.SupportedBlockConfigs), len(want.SupportedBlockConfigs))
	}
	if got.SupportsNCHW != want.SupportsNCHW {
		t.Errorf("SupportsNCHW: got %v, want %v", got.SupportsNCHW, want.SupportsNCHW)
	}
}

func TestParseRejectsBadTag(t *testing.T) {
	blob := Encode(Default())
	blob[0] = 'X'
	_, err := Parse(blob)
	if err == nil {
		t.Fatal("expected error for bad tag")
	}
}

func TestSRAMLaneBytes(t *testing.T) {
	c := Default()
	if c.SRAMLaneBytes() != c.SRAMSizeBytes/c.NumSRAMs {
		t.Errorf("got %d", c.SRAMLaneBytes())
	}
}
