package encode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"time"
)

// PNGWriter writes PNG stills and APNG animations. Each frame is encoded
// by image/png and its IDAT payload is re-chunked as fdAT.
type PNGWriter struct{}

func (PNGWriter) Ext() string { return ".png" }

func (PNGWriter) WriteStill(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

type pngChunk struct {
	typ  string
	data []byte
}

func (PNGWriter) WriteAnimation(w io.Writer, frames []image.Image, delay time.Duration) error {
	if err := checkFrames(frames); err != nil {
		return err
	}
	if delay < 0 || delay > MaxFrameDelay {
		return fmt.Errorf("encode: apng frame delay %v out of range", delay)
	}

	var ihdr []byte
	idats := make([][]byte, len(frames))
	for i, f := range frames {
		var buf bytes.Buffer
		// image/png picks RGB for opaque frames; mixed opacity fails the header check below
		if err := png.Encode(&buf, toNRGBA(f)); err != nil {
			return fmt.Errorf("encode: png frame %d: %w", i, err)
		}
		chunks, err := readChunks(buf.Bytes())
		if err != nil {
			return fmt.Errorf("encode: png frame %d: %w", i, err)
		}
		var hdr []byte
		var data bytes.Buffer
		for _, c := range chunks {
			switch c.typ {
			case "IHDR":
				hdr = c.data
			case "IDAT":
				data.Write(c.data)
			}
		}
		if ihdr == nil {
			ihdr = hdr
		} else if !bytes.Equal(ihdr, hdr) {
			return fmt.Errorf("encode: png frame %d header differs from frame 0", i)
		}
		idats[i] = data.Bytes()
	}

	bounds := frames[0].Bounds()
	delayMs := uint16(delay / time.Millisecond)

	cw := &chunkWriter{w: w}
	cw.raw(pngSignature)
	cw.chunk("IHDR", ihdr)
	cw.chunk("acTL", be32(uint32(len(frames)), 0)) // 0 plays: loop forever

	var seq uint32
	for i, data := range idats {
		fc := be32(seq, uint32(bounds.Dx()), uint32(bounds.Dy()), 0, 0)
		fc = binary.BigEndian.AppendUint16(fc, delayMs)
		fc = binary.BigEndian.AppendUint16(fc, 1000)
		fc = append(fc, 0, 0) // dispose none, blend source
		cw.chunk("fcTL", fc)
		seq++
		if i == 0 {
			cw.chunk("IDAT", data)
			continue
		}
		cw.chunk("fdAT", append(be32(seq), data...))
		seq++
	}
	cw.chunk("IEND", nil)
	return cw.err
}

func readChunks(b []byte) ([]pngChunk, error) {
	if !bytes.HasPrefix(b, pngSignature) {
		return nil, errors.New("missing png signature")
	}
	b = b[len(pngSignature):]
	var out []pngChunk
	for len(b) >= 12 {
		n := binary.BigEndian.Uint32(b[:4])
		if uint64(n)+12 > uint64(len(b)) {
			return nil, errors.New("truncated png chunk")
		}
		out = append(out, pngChunk{typ: string(b[4:8]), data: b[8 : 8+n]})
		b = b[12+n:]
	}
	return out, nil
}

func be32(vs ...uint32) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = binary.BigEndian.AppendUint32(out, v)
	}
	return out
}

type chunkWriter struct {
	w   io.Writer
	err error
}

func (cw *chunkWriter) raw(b []byte) {
	if cw.err == nil {
		_, cw.err = cw.w.Write(b)
	}
}

func (cw *chunkWriter) chunk(typ string, data []byte) {
	head := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
	head = append(head, typ...)
	crc := crc32.NewIEEE()
	crc.Write(head[4:])
	crc.Write(data)
	cw.raw(head)
	cw.raw(data)
	cw.raw(binary.BigEndian.AppendUint32(nil, crc.Sum32()))
}
