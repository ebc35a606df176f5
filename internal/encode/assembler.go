package encode

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"
)

// DefaultFrameDelay is the per-frame display time of animated artifacts.
const DefaultFrameDelay = 33 * time.Millisecond

// MaxFrameDelay is the longest per-frame delay every container can store:
// APNG keeps milliseconds in a 16-bit numerator.
const MaxFrameDelay = 65535 * time.Millisecond

// Result describes a written artifact.
type Result struct {
	Path            string
	Frames          int
	Bytes           int64
	CleanupWarnings []*CleanupWarning
}

// Assembler writes still artifacts and merges frame sequences into
// animated ones.
type Assembler struct {
	Writer Writer
	Delay  time.Duration
}

// NewAssembler returns an assembler for format ("webp" or "png").
func NewAssembler(format string, delay time.Duration) (*Assembler, error) {
	w, err := NewWriter(format)
	if err != nil {
		return nil, err
	}
	if delay <= 0 {
		delay = DefaultFrameDelay
	}
	if delay > MaxFrameDelay {
		return nil, fmt.Errorf("encode: frame delay %v exceeds %v", delay, MaxFrameDelay)
	}
	return &Assembler{Writer: w, Delay: delay}, nil
}

// Ext returns the file extension of produced artifacts.
func (a *Assembler) Ext() string { return a.Writer.Ext() }

// WriteStill encodes img to dst.
func (a *Assembler) WriteStill(ctx context.Context, img image.Image, dst string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	n, err := writeFile(dst, func(w io.Writer) error {
		return a.Writer.WriteStill(w, img)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Path: dst, Frames: 1, Bytes: n}, nil
}

// Assemble merges seq in capture order into one looping artifact at dst.
// The sequence is consumed: its transient frames are deleted whether or not
// the merge succeeds, and deletion failures are reported in the result.
func (a *Assembler) Assemble(ctx context.Context, seq *FrameSequence, dst string) (res Result, err error) {
	defer func() {
		res.CleanupWarnings = seq.Cleanup()
	}()

	frames := make([]image.Image, seq.Len())
	for i := range frames {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if frames[i], err = seq.Frame(i); err != nil {
			return res, err
		}
	}

	n, err := writeFile(dst, func(w io.Writer) error {
		return a.Writer.WriteAnimation(w, frames, a.Delay)
	})
	if err != nil {
		return res, err
	}
	res.Path = dst
	res.Frames = len(frames)
	res.Bytes = n
	return res, nil
}

// writeFile writes through a temporary file in dst's directory and renames
// it into place, so a failed encode never leaves a partial artifact.
func writeFile(dst string, fn func(w io.Writer) error) (int64, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("encode: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+"-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("encode: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) (int64, error) {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, err
	}

	bw := bufio.NewWriter(tmp)
	if err := fn(bw); err != nil {
		return fail(fmt.Errorf("encode: write %s: %w", dst, err))
	}
	if err := bw.Flush(); err != nil {
		return fail(fmt.Errorf("encode: flush %s: %w", dst, err))
	}
	info, err := tmp.Stat()
	if err != nil {
		return fail(fmt.Errorf("encode: stat %s: %w", dst, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("encode: close %s: %w", dst, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("encode: rename %s: %w", dst, err)
	}
	return info.Size(), nil
}
