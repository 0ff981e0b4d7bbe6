package hitags

import "time"

// Loopback is an in-process Transport that hands every sent frame
// straight to a Tag and queues its reply for the next Receive, letting
// tests drive a Reader against a Tag without any real timing or I/O.
type Loopback struct {
	Tag *Tag

	pending *Frame
}

// NewLoopback pairs a Reader-facing Transport with tag.
func NewLoopback(tag *Tag) *Loopback {
	return &Loopback{Tag: tag}
}

func (l *Loopback) Send(tx *Frame, wait time.Duration) error {
	l.pending = l.Tag.HandleFrame(tx)
	return nil
}

func (l *Loopback) Receive(timeout time.Duration) (*Frame, error) {
	reply := l.pending
	l.pending = nil
	if reply == nil {
		return NewFrame(), nil
	}
	return reply, nil
}
