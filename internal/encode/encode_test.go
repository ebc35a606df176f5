package encode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"
)

func solid(size int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func shade(i int) color.NRGBA {
	return color.NRGBA{R: uint8(i * 8), G: 0xF6, B: 0xFF, A: 0xFF}
}

func TestFrameSequenceAppendAndCleanup(t *testing.T) {
	parent := t.TempDir()
	seq, err := NewFrameSequence(parent)
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(seq.Dir()), "frames-")

	for i := 0; i < 3; i++ {
		_, err := seq.Append(solid(8, shade(i)))
		require.NoError(t, err)
	}
	require.Equal(t, 3, seq.Len())

	img, err := seq.Frame(2)
	require.NoError(t, err)
	assert.Equal(t, uint8(16), color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA).R)

	assert.Empty(t, seq.Cleanup())
	_, err = os.Stat(seq.Dir())
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, seq.Cleanup(), "second cleanup is a no-op")
}

func TestFrameSequencesGetDistinctDirs(t *testing.T) {
	parent := t.TempDir()
	a, err := NewFrameSequence(parent)
	require.NoError(t, err)
	b, err := NewFrameSequence(parent)
	require.NoError(t, err)
	assert.NotEqual(t, a.Dir(), b.Dir())
}

func TestCleanupContinuesPastFailures(t *testing.T) {
	seq, err := NewFrameSequence(t.TempDir())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := seq.Append(solid(4, shade(i)))
		require.NoError(t, err)
	}
	slots := seq.Slots()

	// Turn the middle slot into a non-empty directory so removing it fails
	require.NoError(t, os.Remove(slots[1]))
	require.NoError(t, os.MkdirAll(filepath.Join(slots[1], "pinned"), 0o755))

	warns := seq.Cleanup()
	require.NotEmpty(t, warns)
	assert.Equal(t, slots[1], warns[0].Slot)

	for _, p := range []string{slots[0], slots[2]} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "%s should be deleted", p)
	}
}

func TestWebPStillIsLossless(t *testing.T) {
	src := solid(16, color.NRGBA{R: 0xF2, G: 0xF6, B: 0xFF, A: 0xFF})
	src.SetNRGBA(3, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	var buf bytes.Buffer
	require.NoError(t, WebPWriter{}.WriteStill(&buf, src))

	got, err := webp.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), got.Bounds())
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, color.NRGBAModel.Convert(got.At(3, 4)))
	assert.Equal(t, color.NRGBA{R: 0xF2, G: 0xF6, B: 0xFF, A: 0xFF}, color.NRGBAModel.Convert(got.At(0, 0)))
}

func TestWebPAnimationContainer(t *testing.T) {
	frames := []image.Image{solid(8, shade(0)), solid(8, shade(1))}
	var buf bytes.Buffer
	require.NoError(t, WebPWriter{}.WriteAnimation(&buf, frames, 33*time.Millisecond))

	b := buf.Bytes()
	require.Greater(t, len(b), 16)
	assert.Equal(t, "RIFF", string(b[:4]))
	assert.Equal(t, "WEBP", string(b[8:12]))
	assert.Contains(t, string(b), "ANIM")
	assert.Equal(t, 2, bytes.Count(b, []byte("ANMF")))
}

func TestAPNGChunkLayout(t *testing.T) {
	frames := []image.Image{solid(8, shade(0)), solid(8, shade(1)), solid(8, shade(2))}
	var buf bytes.Buffer
	require.NoError(t, PNGWriter{}.WriteAnimation(&buf, frames, 33*time.Millisecond))

	chunks, err := readChunks(buf.Bytes())
	require.NoError(t, err)

	var types []string
	var seqs []uint32
	for _, c := range chunks {
		types = append(types, c.typ)
		switch c.typ {
		case "acTL":
			assert.Equal(t, uint32(3), binary.BigEndian.Uint32(c.data[:4]), "frame count")
			assert.Equal(t, uint32(0), binary.BigEndian.Uint32(c.data[4:8]), "loops forever")
		case "fcTL":
			seqs = append(seqs, binary.BigEndian.Uint32(c.data[:4]))
			assert.Equal(t, uint16(33), binary.BigEndian.Uint16(c.data[20:22]))
			assert.Equal(t, uint16(1000), binary.BigEndian.Uint16(c.data[22:24]))
		case "fdAT":
			seqs = append(seqs, binary.BigEndian.Uint32(c.data[:4]))
		}
	}
	assert.Equal(t, []string{"IHDR", "acTL", "fcTL", "IDAT", "fcTL", "fdAT", "fcTL", "fdAT", "IEND"}, types)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, seqs)

	// Plain PNG decoders show the first frame
	img, err := png.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, shade(0), color.NRGBAModel.Convert(img.At(1, 1)))
}

func TestAnimationRejectsMismatchedFrames(t *testing.T) {
	frames := []image.Image{solid(8, shade(0)), solid(4, shade(1))}
	assert.Error(t, PNGWriter{}.WriteAnimation(io.Discard, frames, time.Millisecond))
	assert.Error(t, WebPWriter{}.WriteAnimation(io.Discard, nil, time.Millisecond))
}

func TestAssembleWritesArtifactAndDeletesFrames(t *testing.T) {
	out := t.TempDir()
	seq, err := NewFrameSequence(t.TempDir())
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := seq.Append(solid(8, shade(i)))
		require.NoError(t, err)
	}

	a, err := NewAssembler("png", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultFrameDelay, a.Delay)

	dst := filepath.Join(out, "thumb.png")
	res, err := a.Assemble(context.Background(), seq, dst)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Frames)
	assert.Empty(t, res.CleanupWarnings)
	assert.Positive(t, res.Bytes)

	_, err = os.Stat(seq.Dir())
	assert.True(t, os.IsNotExist(err), "transient frames removed")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files left beside the artifact")
	assert.Equal(t, "thumb.png", entries[0].Name())
}

type failingWriter struct{ PNGWriter }

func (failingWriter) WriteAnimation(io.Writer, []image.Image, time.Duration) error {
	return errors.New("disk full")
}

func TestAssembleFailureStillCleansUp(t *testing.T) {
	out := t.TempDir()
	seq, err := NewFrameSequence(t.TempDir())
	require.NoError(t, err)
	_, err = seq.Append(solid(8, shade(1)))
	require.NoError(t, err)

	a := &Assembler{Writer: failingWriter{}, Delay: DefaultFrameDelay}
	_, err = a.Assemble(context.Background(), seq, filepath.Join(out, "thumb.png"))
	require.ErrorContains(t, err, "disk full")

	_, err = os.Stat(seq.Dir())
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial artifact")
}

func TestWriteStill(t *testing.T) {
	a, err := NewAssembler("webp", 0)
	require.NoError(t, err)
	assert.Equal(t, ".webp", a.Ext())

	dst := filepath.Join(t.TempDir(), "nested", "still.webp")
	res, err := a.WriteStill(context.Background(), solid(8, shade(3)), dst)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Frames)

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	img, err := webp.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestFrameDelayLimit(t *testing.T) {
	_, err := NewAssembler("png", MaxFrameDelay+time.Millisecond)
	assert.ErrorContains(t, err, "exceeds")

	a, err := NewAssembler("png", MaxFrameDelay)
	require.NoError(t, err)
	assert.Equal(t, MaxFrameDelay, a.Delay)

	frames := []image.Image{solid(4, shade(0)), solid(4, shade(1))}
	assert.Error(t, PNGWriter{}.WriteAnimation(io.Discard, frames, 70*time.Second))

	var buf bytes.Buffer
	require.NoError(t, PNGWriter{}.WriteAnimation(&buf, frames, MaxFrameDelay))
	chunks, err := readChunks(buf.Bytes())
	require.NoError(t, err)
	for _, c := range chunks {
		if c.typ == "fcTL" {
			assert.Equal(t, uint16(65535), binary.BigEndian.Uint16(c.data[20:22]))
		}
	}
}

func TestNewWriterRejectsUnknownFormat(t *testing.T) {
	_, err := NewWriter("gif")
	assert.Error(t, err)
}
