package rover

import (
	"bytes"
	"sync"
	"testing"
)

func TestFrameBuffer_EmptyBeforePublish(t *testing.T) {
	var b FrameBuffer
	if f := b.Latest(); f != nil {
		t.Fatalf("Latest() = %+v, want nil", f)
	}
	if data := b.Acquire(); data != nil {
		t.Fatalf("Acquire() = %v, want nil", data)
	}
}

func TestFrameBuffer_LatestWins(t *testing.T) {
	var b FrameBuffer
	b.Publish([]byte("first"))
	seq := b.Publish([]byte("second"))

	f := b.Latest()
	if f.Seq != seq {
		t.Errorf("Seq = %d, want %d", f.Seq, seq)
	}
	if string(f.Data) != "second" {
		t.Errorf("Data = %q, want %q", f.Data, "second")
	}
	if got := b.Overwritten(); got != 1 {
		t.Errorf("Overwritten() = %d, want 1", got)
	}
}

func TestFrameBuffer_PublishCopiesInput(t *testing.T) {
	var b FrameBuffer
	src := []byte{1, 2, 3}
	b.Publish(src)
	src[0] = 9

	if got := b.Latest().Data[0]; got != 1 {
		t.Errorf("frame changed with caller buffer: got %d", got)
	}

	out := b.Acquire()
	out[1] = 9
	if got := b.Latest().Data[1]; got != 2 {
		t.Errorf("frame changed through Acquire copy: got %d", got)
	}
}

// Every read must return bytes written by exactly one Publish call.
func TestFrameBuffer_ConcurrentReadsNeverTorn(t *testing.T) {
	const (
		writes    = 2000
		frameSize = 4096
		readers   = 4
	)
	var b FrameBuffer

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, readers)

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				data := b.Acquire()
				if data == nil {
					continue
				}
				if len(data) != frameSize {
					errs <- "wrong frame length"
					return
				}
				// Each producer call fills the frame with a single byte value.
				if !bytes.Equal(data, bytes.Repeat(data[:1], frameSize)) {
					errs <- "torn frame observed"
					return
				}
			}
		}()
	}

	buf := make([]byte, frameSize)
	for i := 0; i < writes; i++ {
		for j := range buf {
			buf[j] = byte(i)
		}
		b.Publish(buf)
	}
	close(stop)
	wg.Wait()

	select {
	case msg := <-errs:
		t.Fatal(msg)
	default:
	}

	if f := b.Latest(); f.Seq != writes {
		t.Errorf("last Seq = %d, want %d", f.Seq, writes)
	}
}
