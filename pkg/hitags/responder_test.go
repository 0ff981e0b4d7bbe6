package hitags

import "testing"

func TestUIDRequestRepliesWithUID(t *testing.T) {
	tag := NewTag(DefaultImage())
	req := NewFrame()
	req.AppendUint(uint64(ModeADV1), 5)
	reply := tag.HandleFrame(req)
	if reply == nil || reply.Len() != 32 {
		t.Fatalf("UID request reply len = %v, want 32", reply)
	}
	if got := reply.Bytes(0, 4); string(got) != string([]byte{0x5F, 0xC2, 0x11, 0x84}) {
		t.Fatalf("UID reply = %X, want 5FC21184", got)
	}
}

func selectFrame(uid [4]byte) *Frame {
	f := NewFrame()
	f.AppendUint(opSelect, 5)
	f.Bits = append(f.Bits, BitsFromBytes(uid[:])...)
	f.AppendCRC8()
	return f
}

func TestSelectMismatchYieldsNoReply(t *testing.T) {
	tag := NewTag(DefaultImage())
	reply := tag.HandleFrame(selectFrame([4]byte{0, 0, 0, 0}))
	if reply != nil {
		t.Fatalf("select with wrong UID got a reply, want nil")
	}
}

func TestSelectMaskingWhenAUT(t *testing.T) {
	img := DefaultImage()
	img.Pages[PageConfig][2] = 0x80 // AUT bit
	tag := NewTag(img)
	reply := tag.HandleFrame(selectFrame(img.UIDBytes()))
	if reply == nil || reply.Len() != 40 {
		t.Fatalf("select reply len = %v, want 40", reply)
	}
	if got := reply.Uint(24, 8); got != 0xFF {
		t.Fatalf("byte 3 of select reply = %#x, want 0xFF when AUT=1", got)
	}
}

func TestOverMaxPageYieldsNoReply(t *testing.T) {
	img := DefaultImage()
	img.Pages[PageConfig][0] = MEMT32 // max_page = 0
	tag := NewTag(img)

	req := NewFrame()
	req.AppendUint(opReadPage, 4)
	req.AppendUint(5, 8)
	req.AppendCRC8()
	if reply := tag.HandleFrame(req); reply != nil {
		t.Fatalf("read of page > max_page got a reply, want nil")
	}

	req2 := NewFrame()
	req2.AppendUint(opWritePage, 4)
	req2.AppendUint(5, 8)
	req2.AppendCRC8()
	if reply := tag.HandleFrame(req2); reply != nil {
		t.Fatalf("write of page > max_page got a reply, want nil")
	}
}

func TestWritePageRoundTrip(t *testing.T) {
	tag := NewTag(DefaultImage())

	writeReq := NewFrame()
	writeReq.AppendUint(opWritePage, 4)
	writeReq.AppendUint(5, 8)
	writeReq.AppendCRC8()
	ack := tag.HandleFrame(writeReq)
	if ack == nil || ack.Len() != 2 || ack.Uint(0, 2) != 0b01 {
		t.Fatalf("write ack = %v, want 2-bit 0b01", ack)
	}

	data := NewFrame()
	data.AppendBytes([]byte{0xAA, 0xBB, 0xCC, 0xDD})
	data.AppendCRC8()
	ack2 := tag.HandleFrame(data)
	if ack2 == nil || ack2.Uint(0, 2) != 0b01 {
		t.Fatalf("write data ack = %v, want 2-bit 0b01", ack2)
	}

	readReq := NewFrame()
	readReq.AppendUint(opReadPage, 4)
	readReq.AppendUint(5, 8)
	readReq.AppendCRC8()
	reply := tag.HandleFrame(readReq)
	if reply == nil || string(reply.Bytes(0, 4)) != string([]byte{0xAA, 0xBB, 0xCC, 0xDD}) {
		t.Fatalf("read-back after write = %v, want AABBCCDD", reply)
	}
}

func TestLKPLockout(t *testing.T) {
	img := DefaultImage()
	img.Pages[PageConfig][2] = 0xC0 // AUT=1, LKP=1
	tag := NewTag(img)

	for _, page := range []int{2, 3} {
		req := NewFrame()
		req.AppendUint(opReadPage, 4)
		req.AppendUint(uint64(page), 8)
		req.AppendCRC8()
		if reply := tag.HandleFrame(req); reply != nil {
			t.Fatalf("read page %d under LKP got a reply, want nil", page)
		}

		wreq := NewFrame()
		wreq.AppendUint(opWritePage, 4)
		wreq.AppendUint(uint64(page), 8)
		wreq.AppendCRC8()
		if reply := tag.HandleFrame(wreq); reply != nil {
			t.Fatalf("write page %d under LKP got a reply, want nil", page)
		}
	}
}

func TestBlockWriteAtomicity(t *testing.T) {
	img := DefaultImage()
	tag := NewTag(img)

	req := NewFrame()
	req.AppendUint(opWriteBlock, 4)
	req.AppendUint(5, 8) // page 5, block covers 5..7 (4 - 5%4 = 3 pages)
	req.AppendCRC8()
	if ack := tag.HandleFrame(req); ack == nil {
		t.Fatalf("write block request got no ack")
	}

	for i := 0; i < 2; i++ {
		data := NewFrame()
		data.AppendUint(uint64(0x10+i), 32)
		data.AppendCRC8()
		tag.HandleFrame(data)
		if tag.tstate != TStateWritingBlock {
			t.Fatalf("tstate after frame %d = %v, want WritingBlock", i, tag.tstate)
		}
	}

	last := NewFrame()
	last.AppendUint(0x12, 32)
	last.AppendCRC8()
	tag.HandleFrame(last)
	if tag.tstate != TStateNoOp {
		t.Fatalf("tstate after final block frame = %v, want NoOp", tag.tstate)
	}
}
