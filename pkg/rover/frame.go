package rover

import (
	"sync/atomic"
	"time"
)

// Frame is one encoded camera image as received from the rover.
// A Frame is immutable once published; Data must not be modified.
type Frame struct {
	Seq      uint64
	Data     []byte
	Received time.Time
}

// FrameBuffer hands the most recent camera frame from a producer (the rover
// link) to a consumer (the renderer). The latest publish always wins.
//
// Publishing swaps in a new immutable Frame, so a reader holds either the
// previous complete frame or the new one and never a mix of the two.
type FrameBuffer struct {
	latest atomic.Pointer[Frame]
	seq    atomic.Uint64

	// overwritten counts frames replaced before any reader looked at them.
	overwritten atomic.Uint64
	read        atomic.Uint64
}

// Publish copies data into a new frame and makes it the latest one.
// It never blocks on readers. Returns the sequence number assigned.
func (b *FrameBuffer) Publish(data []byte) uint64 {
	buf := make([]byte, len(data))
	copy(buf, data)

	f := &Frame{
		Seq:      b.seq.Add(1),
		Data:     buf,
		Received: time.Now(),
	}
	prev := b.latest.Swap(f)
	if prev != nil && prev.Seq > b.read.Load() {
		b.overwritten.Add(1)
	}
	return f.Seq
}

// Latest returns the current frame, or nil if nothing was published yet.
func (b *FrameBuffer) Latest() *Frame {
	f := b.latest.Load()
	if f != nil {
		b.markRead(f.Seq)
	}
	return f
}

// Acquire returns a private copy of the latest frame bytes, or nil.
func (b *FrameBuffer) Acquire() []byte {
	f := b.Latest()
	if f == nil {
		return nil
	}
	out := make([]byte, len(f.Data))
	copy(out, f.Data)
	return out
}

// Overwritten returns how many frames were replaced without being read.
func (b *FrameBuffer) Overwritten() uint64 {
	return b.overwritten.Load()
}

func (b *FrameBuffer) markRead(seq uint64) {
	for {
		cur := b.read.Load()
		if seq <= cur || b.read.CompareAndSwap(cur, seq) {
			return
		}
	}
}
