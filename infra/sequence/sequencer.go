package sequence

import "sync/atomic"

// Sequencer issues the strictly monotonic sequence numbers that order
// every command the exchange accepts. It is replay-safe: after journal
// replay it is reset to the last replayed sequence and continues from
// there.
type Sequencer struct {
	next atomic.Uint64
}

func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset sets the sequencer after journal replay. Sequences only ever
// move forward.
func (s *Sequencer) Reset(v uint64) {
	for {
		cur := s.next.Load()
		if v <= cur || s.next.CompareAndSwap(cur, v) {
			return
		}
	}
}
