package hitags

import (
	"encoding/binary"
	"fmt"
	"time"

	serial "github.com/daedaluz/goserial"
)

// SerialTransport frames reader commands over a serial link to an
// external capture/modulation device, playing the client side of the
// same client/device split the reference firmware runs inside of: one
// end demodulates/modulates the 125 kHz carrier, the other only ever
// sees whole bit frames.
//
// Wire framing: a 2-byte big-endian bit count, followed by
// ceil(bits/8) bytes packing those bits MSB first (zero-padded in the
// last byte). A bit count of 0 is a valid "no reply" frame.
type SerialTransport struct {
	port *serial.Port
}

// OpenSerialTransport opens device at the given baud rate.
func OpenSerialTransport(device string, baud int) (*SerialTransport, error) {
	opts := serial.NewOptions().SetReadTimeout(500 * time.Millisecond)
	port, err := serial.Open(device, opts)
	if err != nil {
		return nil, fmt.Errorf("open serial device %s: %w", device, err)
	}
	attrs, err := port.GetAttr2()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("get termios: %w", err)
	}
	attrs.MakeRaw()
	attrs.SetCustomSpeed(uint32(baud))
	if err := port.SetAttr2(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("set termios: %w", err)
	}
	return &SerialTransport{port: port}, nil
}

// Close releases the underlying serial port.
func (s *SerialTransport) Close() error {
	return s.port.Close()
}

// controlFrameSentinel marks a control frame (as opposed to a bit
// frame) on the wire: no real frame ever reaches 0xFFFF bits, so the
// header's bit-count field doubles as a frame-type discriminator.
const controlFrameSentinel = 0xFFFF

// SetEdgeThreshold forwards the analog front-end's edge-detect
// threshold to the device on the other end of the link, corresponding
// to the `threshold` half of C8's setup_field(role, threshold)
// contract (spec.md §4.7); the field-strength/role half has no
// equivalent on this client/device split, since the device already
// knows which role it is running.
func (s *SerialTransport) SetEdgeThreshold(threshold int) error {
	header := make([]byte, 2)
	binary.BigEndian.PutUint16(header, controlFrameSentinel)
	if _, err := s.port.Write(header); err != nil {
		return fmt.Errorf("write control frame header: %w", err)
	}
	if _, err := s.port.Write([]byte{byte(threshold)}); err != nil {
		return fmt.Errorf("write edge threshold: %w", err)
	}
	return nil
}

func (s *SerialTransport) Send(tx *Frame, wait time.Duration) error {
	n := tx.Len()
	packed := packBits(tx.Bits)
	header := make([]byte, 2)
	binary.BigEndian.PutUint16(header, uint16(n))
	if _, err := s.port.Write(header); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if len(packed) > 0 {
		if _, err := s.port.Write(packed); err != nil {
			return fmt.Errorf("write frame body: %w", err)
		}
	}
	if wait > 0 {
		time.Sleep(wait)
	}
	return nil
}

func (s *SerialTransport) Receive(timeout time.Duration) (*Frame, error) {
	s.port.SetReadTimeout(timeout)

	header := make([]byte, 2)
	if _, err := readFull(s.port, header); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}
	n := int(binary.BigEndian.Uint16(header))
	if n == 0 {
		return NewFrame(), nil
	}
	byteLen := (n + 7) / 8
	body := make([]byte, byteLen)
	if _, err := readFull(s.port, body); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return &Frame{Bits: BitsFromBytes(body)[:n]}, nil
}

func readFull(p *serial.Port, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := p.Read(buf[total:])
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("short read")
		}
		total += n
	}
	return total, nil
}

func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}
