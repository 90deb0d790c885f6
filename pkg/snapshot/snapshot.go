// Package snapshot saves camera frames to disk on operator request.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoFrame is returned when no camera frame has arrived yet.
var ErrNoFrame = errors.New("no camera frame received yet")

const (
	suffixLen   = 4
	maxAttempts = 8
	letters     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// FrameSource hands out a private copy of the latest frame bytes.
type FrameSource interface {
	Acquire() []byte
}

// Writer stores frames as {date}_{suffix}.{ext} files in a directory.
type Writer struct {
	dir string
	ext string

	now    func() time.Time
	rand   func(n int) int
	create func(path string) (io.WriteCloser, error)
}

// NewWriter returns a writer storing files in dir with extension ext.
func NewWriter(dir, ext string) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{
		dir:  dir,
		ext:  strings.TrimPrefix(ext, "."),
		now:    time.Now,
		rand:   rand.IntN,
		create: createExclusive,
	}
}

func createExclusive(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
}

// Name returns a fresh file name, e.g. 2026-10-15_aXbQ.jpg.
// Names are unique with high probability, not guaranteed.
func (w *Writer) Name() string {
	var sb strings.Builder
	sb.WriteString(w.now().Format(time.DateOnly))
	sb.WriteByte('_')
	for i := 0; i < suffixLen; i++ {
		sb.WriteByte(letters[w.rand(len(letters))])
	}
	if w.ext != "" {
		sb.WriteByte('.')
		sb.WriteString(w.ext)
	}
	return sb.String()
}

// Capture writes the latest frame to a new file and returns its path.
// The frame is copied out first, so the producer is never held up by disk
// I/O. An existing file is never overwritten; a name collision is retried
// with a new suffix.
func (w *Writer) Capture(src FrameSource) (string, error) {
	data := src.Acquire()
	if data == nil {
		return "", ErrNoFrame
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		path := filepath.Join(w.dir, w.Name())
		f, err := w.create(path)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create snapshot: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("write snapshot %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("close snapshot %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("create snapshot: no free name after %d attempts", maxAttempts)
}
