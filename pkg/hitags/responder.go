package hitags

import (
	"encoding/binary"
	"log/slog"
)

// Opcodes used on the air, as documented for 20-bit and 45-bit frames.
const (
	opSelect     = 0x18 // 5-bit, top bits of a 45-bit select frame
	opReadPage   = 0xC  // 4-bit, upper nibble of a 20-bit frame
	opReadBlock  = 0xD
	opWritePage  = 0x8
	opWriteBlock = 0x9
)

// PState is the tag's top-level session state.
type PState int

const (
	StateReady PState = iota
	StateSelected
	StateQuiet
)

// TState is the tag's write sub-state, tracking an in-progress page or
// block write across the ack/data frame pair.
type TState int

const (
	TStateNoOp TState = iota
	TStateWritingPage
	TStateWritingBlock
)

// Tag is the passive side of the protocol: it answers frames purely by
// their bit length (doc.go), keeping whatever pstate/tstate resulted
// from the previous frame.
type Tag struct {
	Image TagImage

	pstate PState
	tstate TState

	protocolMode Mode
	pageToWrite  int
	blockLeft    int

	// RotateUID counts KEY/CHALLENGE authentications attempted against
	// this tag. Dormant per spec.md §9: tracked for observability only,
	// never used to change the tag's identity.
	RotateUID int
}

// NewTag returns a tag loaded with the given memory image, in its
// initial READY/NO_OP state and ADV1 protocol mode (the reference
// firmware's power-on default).
func NewTag(image TagImage) *Tag {
	return &Tag{Image: image, pstate: StateReady, tstate: TStateNoOp, protocolMode: ModeADV1}
}

// HandleFrame dispatches an incoming bit frame by its exact length and
// returns the tag's reply, or nil for a frame that gets no response.
func (t *Tag) HandleFrame(rx *Frame) *Frame {
	slog.Debug("tag rx frame", "rxlen", rx.Len(), "pstate", t.pstate, "tstate", t.tstate)
	switch rx.Len() {
	case 5:
		return t.handleUIDRequest(rx)
	case 45:
		return t.handleSelect(rx)
	case 64:
		return t.handleChallenge(rx)
	case 40:
		return t.handleWriteData(rx)
	case 20:
		return t.handleReadWrite(rx)
	default:
		return nil
	}
}

func (t *Tag) handleUIDRequest(rx *Frame) *Frame {
	t.pstate = StateReady
	t.tstate = TStateNoOp

	mode := Mode(rx.Uint(0, 5))
	t.protocolMode = mode

	out := NewFrame()
	out.AppendBytes(t.Image.Pages[PageUID][:])
	return out
}

func (t *Tag) handleSelect(rx *Frame) *Frame {
	op := byte(rx.Uint(0, 5))
	if op != opSelect {
		return nil
	}
	selected := uint32(rx.Uint(5, 32))
	storedLE := binary.LittleEndian.Uint32(t.Image.Pages[PageUID][:])
	if bswap32(selected) != storedLE {
		slog.Debug("select uid mismatch", "got", bswap32(selected), "want", storedLE)
		return nil
	}

	t.pstate = StateSelected

	cfg := t.Image.Pages[PageConfig]
	out := NewFrame()
	out.AppendUint(uint64(cfg[0]), 8)
	out.AppendUint(uint64(cfg[1]), 8)
	out.AppendUint(uint64(cfg[2]), 8)
	if t.Image.Config().AUT {
		out.AppendUint(0xFF, 8)
	} else {
		out.AppendUint(uint64(cfg[3]), 8)
	}
	if !IsSTD(t.protocolMode) {
		out.AppendCRC8()
	}
	return out
}

func (t *Tag) handleChallenge(rx *Frame) *Frame {
	t.RotateUID++

	nonce := uint32(rx.Uint(0, 32))
	slog.Debug("tag authenticate", "nonce", nonce, "rotate_uid", t.RotateUID)
	var cs CipherState
	cs.Init(t.Image.Key(), t.Image.UID(), nonce)
	// Discard four keystream bytes as part of the init sequence before
	// the first byte used to mask the reply, mirroring the reference
	// generator's warm-up clocks.
	_ = cs.NextBytes(4)

	pwdh0, pwdl0, pwdl1 := t.Image.Passwords()
	plain := []byte{t.Image.Pages[PageConfig][2], pwdh0, pwdl0, pwdl1}

	out := NewFrame()
	out.AppendBytes(plain)
	hasCRC := !IsSTD(t.protocolMode)
	if hasCRC {
		out.AppendCRC8()
	}

	ks := cs.NextBytes(len(plain))
	for i, b := range plain {
		out.Bits = xorByteInFrame(out.Bits, i*8, b^ks[i])
	}
	if hasCRC {
		crcByte := byte(out.Uint(len(plain)*8, 8))
		out.Bits = xorByteInFrame(out.Bits, len(plain)*8, crcByte^cs.NextByte())
	}
	return out
}

// xorByteInFrame overwrites the 8 bits at bit-offset off with the given
// byte, used to mask an already-CRC'd frame in place.
func xorByteInFrame(bits []bool, off int, v byte) []bool {
	for i := 0; i < 8; i++ {
		bits[off+i] = (v>>uint(7-i))&1 != 0
	}
	return bits
}

func (t *Tag) handleWriteData(rx *Frame) *Frame {
	switch t.tstate {
	case TStateWritingPage:
		copy(t.Image.Pages[t.pageToWrite][:], rx.Bytes(0, PageSize))
		t.tstate = TStateNoOp
		t.pageToWrite = 0
		return ackFrame()
	case TStateWritingBlock:
		copy(t.Image.Pages[t.pageToWrite][:], rx.Bytes(0, PageSize))
		t.pageToWrite++
		t.blockLeft--
		if t.blockLeft == 0 {
			t.tstate = TStateNoOp
			t.pageToWrite = 0
		}
		return ackFrame()
	default:
		return nil
	}
}

func ackFrame() *Frame {
	out := NewFrame()
	out.AppendUint(0b01, 2)
	return out
}

func (t *Tag) handleReadWrite(rx *Frame) *Frame {
	op := byte(rx.Uint(0, 4))
	page := int(rx.Uint(4, 8))
	if page > t.Image.MaxPage() {
		return nil
	}

	cfg := t.Image.Config()

	switch op {
	case opReadPage:
		if cfg.AUT && cfg.LKP && (page == 2 || page == 3) {
			return nil
		}
		out := NewFrame()
		pg := t.Image.Pages[page]
		if cfg.AUT && page == PageConfig {
			out.AppendUint(uint64(pg[0]), 8)
			out.AppendUint(uint64(pg[1]), 8)
			out.AppendUint(uint64(pg[2]), 8)
			out.AppendUint(0xFF, 8)
		} else {
			out.AppendBytes(pg[:])
		}
		if !IsSTD(t.protocolMode) {
			out.AppendCRC8()
		}
		return out

	case opReadBlock:
		// Inherited from the reference firmware: a block read returns
		// 4 - page%4 pages, from page up to the next four-page boundary,
		// not always a full four-page block.
		n := 4 - page%4
		out := NewFrame()
		for i := 0; i < n; i++ {
			out.AppendBytes(t.Image.Pages[page+i][:])
		}
		if !IsSTD(t.protocolMode) {
			out.AppendCRC8()
		}
		return out

	case opWritePage:
		if (cfg.LCON && page == 1) || (cfg.LKP && (page == 2 || page == 3)) {
			return nil
		}
		t.pageToWrite = page
		t.tstate = TStateWritingPage
		return ackFrame()

	case opWriteBlock:
		if (cfg.LCON && page == 1) || (cfg.LKP && (page == 2 || page == 3)) {
			return nil
		}
		t.pageToWrite = page
		t.blockLeft = 4 - page%4
		t.tstate = TStateWritingBlock
		return ackFrame()

	default:
		return nil
	}
}
