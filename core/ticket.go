package core

import "sync/atomic"

// ticketWord is the single 64-bit word behind every blocking primitive.
// The high half is the ticket counter (next ticket handed to a waiter) and
// the low half is the demand field whose meaning depends on the primitive.
// Both halves wrap independently.
type ticketWord struct {
	v atomic.Uint64
}

func packTicket(hi, lo uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}

func splitTicket(w uint64) (hi, lo uint32) {
	return uint32(w >> 32), uint32(w)
}

func (w *ticketWord) load() (hi, lo uint32) {
	return splitTicket(w.v.Load())
}

// cas replaces (oldHi, oldLo) with (hi, lo).
func (w *ticketWord) cas(oldHi, oldLo, hi, lo uint32) bool {
	return w.v.CompareAndSwap(packTicket(oldHi, oldLo), packTicket(hi, lo))
}

// retiredLo is the demand value of a destroyed primitive. Live demand counts
// tasks, and a pool holds far fewer than 2^32-1 of them, so no live state
// reaches it.
const retiredLo = ^uint32(0)

// retire marks the word destroyed, in the same CAS that confirms idle(lo).
// It fails with ErrBusy while idle rejects the demand.
func (w *ticketWord) retire(idle func(lo uint32) bool) error {
	for {
		hi, lo := w.load()
		if lo == retiredLo {
			return ErrDestroyed
		}
		if !idle(lo) {
			return ErrBusy
		}
		if w.cas(hi, lo, hi, retiredLo) {
			return nil
		}
	}
}
