package hitags

import "encoding/binary"

// PageSize is the width in bytes of one addressable page of tag memory.
const PageSize = 4

// MaxPages is the largest page count any Hitag-S family member exposes.
const MaxPages = 64

// Page indices with fixed semantics (spec.md §3).
const (
	PageUID    = 0
	PageConfig = 1
	PagePWDL   = 2 // PWDL0, PWDL1, KEYH0, KEYH1 in auth mode
	PageKey    = 3 // KEYL0..KEYL3 in auth mode
)

// Memory-size tiers decoded from CON0's MEMT field.
const (
	MEMT32   = 0 // 1 page,  32 bits
	MEMT256  = 1 // 8 pages, 256 bits
	MEMT2048 = 2 // 64 pages, 2048 bits
	MEMTMax  = 3 // 64 pages, reserved/max
)

// Page is one 4-byte addressable unit of tag memory, stored exactly as
// transmitted on the wire (big-endian for page 0, per doc.go).
type Page [PageSize]byte

// Config is the decoded view of configuration page 1 (CON0/CON1/CON2).
//
// Bit layout (an implementation decision — the retrieved firmware source
// only gives the effective behavior and one worked example, CON0=0xCA
// decoding to MEMT=2 for a "Hitag S 2048" tag; this layout is chosen to
// be consistent with that example and is otherwise this engine's own
// convention, documented here rather than left implicit):
//
//	CON0 bits 1:0  MEMT (memory size tier)
//	CON0 bits 7:2  reserved (OTP/coding, not modeled)
//	CON1           page lock bits, not enforced beyond LCON/LKP
//	CON2 bit 7     AUT  (authentication required)
//	CON2 bit 6     LKP  (lock key/password pages 2-3 from read when AUT)
//	CON2 bit 5     LCON (lock config page 1 from writes)
//	CON2 bits 4:0  reserved
type Config struct {
	CON0, CON1, CON2 byte
	AUT, LKP, LCON   bool
	MEMT             byte
}

// DecodeConfig extracts a Config view from configuration page 1.
func DecodeConfig(p Page) Config {
	con0, con1, con2 := p[0], p[1], p[2]
	return Config{
		CON0: con0,
		CON1: con1,
		CON2: con2,
		MEMT: con0 & 0x03,
		AUT:  con2&0x80 != 0,
		LKP:  con2&0x40 != 0,
		LCON: con2&0x20 != 0,
	}
}

// MaxPage returns the highest valid page index for a given MEMT tier
// (spec.md §3, invariant 1).
func MaxPage(memt byte) int {
	switch memt & 0x03 {
	case MEMT32:
		return 0
	case MEMT256:
		return 7
	default: // MEMT2048, MEMTMax
		return 63
	}
}

// TagImage is the full 64-page memory image of one simulated or read tag.
type TagImage struct {
	Pages [MaxPages]Page
}

// DefaultImage returns the factory image the reference firmware ships
// when no memory buffer is supplied to the simulator: UID 5F C2 11 84,
// Hitag S 2048 config with AUT=0, and the "HTON/MIKR" filler data used
// throughout the source's own debug traces.
func DefaultImage() TagImage {
	var img TagImage
	img.Pages[0] = Page{0x5F, 0xC2, 0x11, 0x84}
	img.Pages[1] = Page{0xCA, 0x00, 0x00, 0xAA}
	img.Pages[2] = Page{0x48, 0x54, 0x4F, 0x4E}
	img.Pages[3] = Page{0x4D, 0x49, 0x4B, 0x52}
	img.Pages[4] = Page{0xFF, 0x80, 0x00, 0x00}
	img.Pages[7] = Page{0x57, 0x5F, 0x4F, 0x48}
	return img
}

// Config decodes the current configuration page.
func (t *TagImage) Config() Config {
	return DecodeConfig(t.Pages[PageConfig])
}

// MaxPage returns the highest valid page index for this image's MEMT.
func (t *TagImage) MaxPage() int {
	return MaxPage(t.Config().MEMT)
}

// UIDBytes returns the raw, on-wire UID bytes (page 0, unchanged).
func (t *TagImage) UIDBytes() [4]byte {
	var u [4]byte
	copy(u[:], t.Pages[PageUID][:])
	return u
}

// UID returns the UID as a host-native big-endian integer, obtained by a
// single byte-swap of the little-endian word the UID is conceptually
// stored as (doc.go's byte-order convention).
func (t *TagImage) UID() uint32 {
	le := binary.LittleEndian.Uint32(t.Pages[PageUID][:])
	return bswap32(le)
}

func bswap32(v uint32) uint32 {
	return (v>>24)&0xFF | (v>>8)&0xFF00 | (v<<8)&0xFF0000 | (v<<24)&0xFF000000
}

// Key returns the 48-bit authentication key spread across bytes 2-3 in
// auth mode: page 2 bytes {2,3} (KEYH0, KEYH1) followed by page 3's 4
// bytes (KEYL0..KEYL3), big-endian as documented in spec.md §3.
func (t *TagImage) Key() [6]byte {
	var k [6]byte
	k[0] = t.Pages[PagePWDL][2]
	k[1] = t.Pages[PagePWDL][3]
	copy(k[2:], t.Pages[PageKey][:])
	return k
}

// Passwords returns the decrypted password fields stored in auth mode:
// PWDH0 (page1 byte3), PWDL0 and PWDL1 (page2 bytes 0-1).
func (t *TagImage) Passwords() (pwdh0, pwdl0, pwdl1 byte) {
	return t.Pages[PageConfig][3], t.Pages[PagePWDL][0], t.Pages[PagePWDL][1]
}
