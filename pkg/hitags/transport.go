package hitags

import "time"

// Transport carries raw bit frames between a Reader and whatever is on
// the other end of the air interface: a simulated Tag over loopback.go,
// or a real device over serialtransport.go.
type Transport interface {
	// Send transmits a frame and waits the given settle time before the
	// caller starts listening for a reply, mirroring the reference
	// driver's distinct HITAG_T_WAIT_FIRST / HITAG_T_WAIT_SC delays.
	Send(tx *Frame, wait time.Duration) error
	// Receive waits up to timeout for a reply frame. A zero-bit frame
	// is a valid "no reply" signal; an error means the transport itself
	// failed.
	Receive(timeout time.Duration) (*Frame, error)
}

// Standard inter-frame wait times, named after the reference driver's
// HITAG_T_WAIT_FIRST / HITAG_T_WAIT_SC constants.
const (
	WaitFirst = 300 * time.Microsecond
	WaitSC    = 200 * time.Microsecond
	// FieldOffPause is the minimum field-off time a challenge sweep must
	// observe between a failed attempt and the next reselect.
	FieldOffPause = 2 * time.Millisecond
)

// TearOffHook is armed before the data frame of a page or block write
// and, when it fires, aborts the write before the frame is sent, used
// to exercise torn-write recovery without real hardware timing. A nil
// hook never fires.
type TearOffHook func() bool
