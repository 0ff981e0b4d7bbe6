package hitags

import "testing"

func TestFrameAppendAndRead(t *testing.T) {
	f := NewFrame()
	f.AppendUint(0x18, 5)
	f.AppendBytes([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	if f.Len() != 5+32 {
		t.Fatalf("Len() = %d, want %d", f.Len(), 5+32)
	}
	if got := f.Uint(0, 5); got != 0x18 {
		t.Fatalf("Uint(0,5) = %#x, want 0x18", got)
	}
	if got := f.Bytes(5, 4); string(got) != string([]byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Fatalf("Bytes(5,4) = %X, want DEADBEEF", got)
	}
}

func TestFrameCRC8RoundTrip(t *testing.T) {
	f := NewFrame()
	f.AppendBytes([]byte{0xCA, 0x00, 0x00, 0xAA})
	f.AppendCRC8()
	if !f.CheckCRC8() {
		t.Fatalf("CheckCRC8() = false, want true")
	}
	// Flip a body bit; the check must now fail.
	f.Bits[0] = !f.Bits[0]
	if f.CheckCRC8() {
		t.Fatalf("CheckCRC8() = true after corrupting a body bit, want false")
	}
}

func TestBitsFromBytesRoundTrip(t *testing.T) {
	in := []byte{0xA5, 0x3C}
	bits := BitsFromBytes(in)
	f := &Frame{Bits: bits}
	out := f.Bytes(0, 2)
	if string(out) != string(in) {
		t.Fatalf("round trip = %X, want %X", out, in)
	}
}
