package snapshot

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/gwillem/rover/pkg/rover"
)

var namePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_[a-zA-Z]{4}\.jpg$`)

func TestWriter_Name(t *testing.T) {
	w := NewWriter(t.TempDir(), ".jpg")
	w.now = func() time.Time { return time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC) }

	name := w.Name()
	if !namePattern.MatchString(name) {
		t.Errorf("Name() = %q, does not match date_suffix.ext", name)
	}
	if name[:11] != "2026-10-15_" {
		t.Errorf("Name() = %q, want 2026-10-15 prefix", name)
	}
}

func TestWriter_CaptureWritesExactBytes(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "jpg")

	var frames rover.FrameBuffer
	frame := []byte{0xff, 0xd8, 1, 2, 3, 4, 5, 6, 0xff, 0xd9}
	frames.Publish(frame)

	path, err := w.Capture(&frames)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("snapshot written to %s, want %s", filepath.Dir(path), dir)
	}
	if !namePattern.MatchString(filepath.Base(path)) {
		t.Errorf("snapshot name %q does not match pattern", filepath.Base(path))
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("snapshot contents = %v, want %v", got, frame)
	}
}

func TestWriter_NoFrame(t *testing.T) {
	w := NewWriter(t.TempDir(), "jpg")
	var frames rover.FrameBuffer
	if _, err := w.Capture(&frames); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Capture() error = %v, want ErrNoFrame", err)
	}
}

func TestWriter_RetriesOnCollision(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "jpg")
	w.now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }

	// First name comes out as "aaaa", then "bbbb".
	calls := 0
	w.rand = func(int) int {
		calls++
		if calls <= suffixLen {
			return 0
		}
		return 1
	}
	taken := filepath.Join(dir, "2026-01-02_aaaa.jpg")
	if err := os.WriteFile(taken, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	var frames rover.FrameBuffer
	frames.Publish([]byte("new"))
	path, err := w.Capture(&frames)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if filepath.Base(path) != "2026-01-02_bbbb.jpg" {
		t.Errorf("path = %s, want 2026-01-02_bbbb.jpg", path)
	}
	if old, _ := os.ReadFile(taken); string(old) != "old" {
		t.Errorf("existing snapshot overwritten: %q", old)
	}
}

func TestWriter_WriteFailure(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "missing", "dir"), "jpg")
	var frames rover.FrameBuffer
	frames.Publish([]byte("x"))
	if _, err := w.Capture(&frames); err == nil {
		t.Error("Capture into a missing directory succeeded")
	}
}

type failingFile struct{ *os.File }

func (f failingFile) Write([]byte) (int, error) { return 0, errors.New("no space left on device") }

func TestWriter_FailedWriteLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "jpg")
	w.create = func(path string) (io.WriteCloser, error) {
		f, err := createExclusive(path)
		if err != nil {
			return nil, err
		}
		return failingFile{f.(*os.File)}, nil
	}

	var frames rover.FrameBuffer
	frames.Publish([]byte("frame"))
	if _, err := w.Capture(&frames); err == nil {
		t.Fatal("Capture succeeded with a failing write")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("failed capture left %d files behind", len(entries))
	}
}
