package encode

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// CleanupWarning is a transient frame that could not be deleted.
type CleanupWarning struct {
	Slot string
	Err  error
}

func (w *CleanupWarning) Error() string {
	return fmt.Sprintf("encode: delete transient frame %s: %v", w.Slot, w.Err)
}

func (w *CleanupWarning) Unwrap() error { return w.Err }

// FrameSequence is an ordered list of captured frames, each stored as a PNG
// in a private frames-<uuid> directory.
type FrameSequence struct {
	dir   string
	slots []string
}

// NewFrameSequence creates an empty sequence under parent (os.TempDir when
// parent is empty).
func NewFrameSequence(parent string) (*FrameSequence, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	dir := filepath.Join(parent, "frames-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("encode: create frame dir: %w", err)
	}
	return &FrameSequence{dir: dir}, nil
}

// Dir returns the directory holding the transient slots.
func (s *FrameSequence) Dir() string { return s.dir }

// Len returns the number of frames appended.
func (s *FrameSequence) Len() int { return len(s.slots) }

// Slots returns the slot paths in capture order.
func (s *FrameSequence) Slots() []string {
	return append([]string(nil), s.slots...)
}

var slotEncoder = png.Encoder{CompressionLevel: png.BestSpeed}

// Append stores img in the next slot and returns the slot path.
func (s *FrameSequence) Append(img image.Image) (string, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("frame-%03d.png", len(s.slots)))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("encode: create slot: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := slotEncoder.Encode(bw, img); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode: write slot %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode: flush slot %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("encode: close slot %s: %w", path, err)
	}
	s.slots = append(s.slots, path)
	return path, nil
}

// Frame decodes the frame stored in slot i.
func (s *FrameSequence) Frame(i int) (image.Image, error) {
	if i < 0 || i >= len(s.slots) {
		return nil, fmt.Errorf("encode: frame %d out of range [0,%d)", i, len(s.slots))
	}
	f, err := os.Open(s.slots[i])
	if err != nil {
		return nil, fmt.Errorf("encode: open slot: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("encode: decode slot %s: %w", s.slots[i], err)
	}
	return img, nil
}

// Cleanup deletes every slot and the sequence directory. Each deletion is
// attempted regardless of earlier failures; files already gone are not
// reported. Calling Cleanup again is a no-op.
func (s *FrameSequence) Cleanup() []*CleanupWarning {
	var warns []*CleanupWarning
	for _, p := range s.slots {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			warns = append(warns, &CleanupWarning{Slot: p, Err: err})
		}
	}
	s.slots = nil
	if s.dir != "" {
		if err := os.Remove(s.dir); err != nil && !os.IsNotExist(err) {
			warns = append(warns, &CleanupWarning{Slot: s.dir, Err: err})
		}
	}
	return warns
}
