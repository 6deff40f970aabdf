package nibe

import "testing"

func TestByteCodecRoundTrip16Bit(t *testing.T) {
	c := ByteCodec{}
	for _, w := range []Width{WidthU8, WidthS8, WidthU16, WidthS16} {
		raw, err := c.Encode(w, 5)
		if err != nil {
			t.Fatalf("Encode(%s): %v", w, err)
		}
		got, ok, err := c.Decode(w, raw)
		if err != nil || !ok || got != 5 {
			t.Errorf("Decode(%s, Encode(%s, 5)) = (%d, %v, %v), want (5, true, nil)", w, w, got, ok, err)
		}
	}
}

func TestByteCodecRoundTrip32BitWordSwap(t *testing.T) {
	for _, swap := range []bool{true, false} {
		c := ByteCodec{WordSwap: BoolPtr(swap)}
		for _, w := range []Width{WidthU32, WidthS32} {
			raw, err := c.Encode(w, 4853)
			if err != nil {
				t.Fatalf("Encode(%s): %v", w, err)
			}
			got, ok, err := c.Decode(w, raw)
			if err != nil || !ok || got != 4853 {
				t.Errorf("swap=%v Decode(%s, Encode(%s, 4853)) = (%d, %v, %v), want (4853, true, nil)", swap, w, w, got, ok, err)
			}
		}
	}
}

func TestByteCodecDecode32BitRequiresWordSwapSet(t *testing.T) {
	c := ByteCodec{}
	if _, _, err := c.Decode(WidthU32, []byte{1, 2, 3, 4}); err == nil {
		t.Fatal("expected an error decoding a 32-bit value with WordSwap unset")
	}
	if _, err := c.Encode(WidthU32, 1); err == nil {
		t.Fatal("expected an error encoding a 32-bit value with WordSwap unset")
	}
}

func TestByteCodecSentinelIsUnset(t *testing.T) {
	c := ByteCodec{}
	_, ok, err := c.Decode(WidthU16, []byte{0xFF, 0xFF})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ok {
		t.Error("expected ok=false for the u16 sentinel 0xFFFF")
	}
}

func TestByteCodecSigned32SentinelIsUnset(t *testing.T) {
	c := ByteCodec{WordSwap: BoolPtr(true)}
	// -0x80000000 little-endian, not word-swapped (WordSwap=true means
	// low word first, matching plain little-endian).
	_, ok, err := c.Decode(WidthS32, []byte{0x00, 0x00, 0x00, 0x80})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ok {
		t.Error("expected ok=false for the s32 sentinel")
	}
}

func TestSwapWordsLeavesShortBuffersAlone(t *testing.T) {
	in := []byte{1, 2, 3}
	out := swapWords(in)
	if len(out) != 3 || out[0] != 1 || out[1] != 2 || out[2] != 3 {
		t.Errorf("swapWords(%v) = %v, want unchanged", in, out)
	}
}

func TestSwapWords(t *testing.T) {
	got := swapWords([]byte{'a', 'b', 'c', 'd'})
	want := []byte{'c', 'd', 'a', 'b'}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("swapWords(abcd) = %s, want cdab", got)
		}
	}
}

func TestRegisterPairCodecRoundTrip16Bit(t *testing.T) {
	c := RegisterPairCodec{}
	raw, err := c.Encode(WidthU16, 517)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, ok, err := c.Decode(WidthU16, raw)
	if err != nil || !ok || got != 517 {
		t.Errorf("Decode(Encode(517)) = (%d, %v, %v), want (517, true, nil)", got, ok, err)
	}
}

func TestRegisterPairCodecRoundTrip32BitWordSwap(t *testing.T) {
	for _, swap := range []bool{true, false} {
		c := RegisterPairCodec{WordSwap: BoolPtr(swap)}
		regs, err := c.Encode(WidthS32, -4853)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, ok, err := c.Decode(WidthS32, regs)
		if err != nil || !ok || got != -4853 {
			t.Errorf("swap=%v Decode(Encode(-4853)) = (%d, %v, %v), want (-4853, true, nil)", swap, got, ok, err)
		}
	}
}

func TestRegisterPairCodecDecodeRejectsWrongRegisterCount(t *testing.T) {
	c := RegisterPairCodec{WordSwap: BoolPtr(true)}
	if _, _, err := c.Decode(WidthU32, []uint16{1}); err == nil {
		t.Fatal("expected an error decoding a 32-bit width from a single register")
	}
	if _, _, err := c.Decode(WidthU16, []uint16{1, 2}); err == nil {
		t.Fatal("expected an error decoding a 16-bit width from two registers")
	}
}
