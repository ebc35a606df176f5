package envmap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"asset-thumbnailer/internal/scene"
)

// DecodeRGBE reads a Radiance .hdr image in the -Y H +X W orientation,
// flat or new-style run-length encoded.
func DecodeRGBE(r io.Reader) (*scene.Environment, error) {
	br := bufio.NewReader(r)

	magic, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("envmap: read header: %w", err)
	}
	if !strings.HasPrefix(magic, "#?") {
		return nil, errors.New("envmap: not a Radiance HDR file")
	}
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("envmap: read header: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if f, ok := strings.CutPrefix(line, "FORMAT="); ok && f != "32-bit_rle_rgbe" {
			return nil, fmt.Errorf("envmap: unsupported format %q", f)
		}
	}

	res, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("envmap: read resolution: %w", err)
	}
	var w, h int
	if _, err := fmt.Sscanf(strings.TrimSpace(res), "-Y %d +X %d", &h, &w); err != nil {
		return nil, fmt.Errorf("envmap: unsupported resolution line %q", strings.TrimSpace(res))
	}
	if w <= 0 || h <= 0 || w > 1<<15 || h > 1<<15 {
		return nil, fmt.Errorf("envmap: bad dimensions %dx%d", w, h)
	}

	env := &scene.Environment{Width: w, Height: h, Pix: make([]float32, w*h*3)}
	line := make([]byte, w*4)
	for y := 0; y < h; y++ {
		if err := readScanline(br, line, w); err != nil {
			return nil, fmt.Errorf("envmap: scanline %d: %w", y, err)
		}
		for x := 0; x < w; x++ {
			e := line[x*4+3]
			if e == 0 {
				continue
			}
			f := math.Ldexp(1, int(e)-128) / 255
			i := (y*w + x) * 3
			env.Pix[i] = float32(float64(line[x*4]) * f)
			env.Pix[i+1] = float32(float64(line[x*4+1]) * f)
			env.Pix[i+2] = float32(float64(line[x*4+2]) * f)
		}
	}
	return env, nil
}

// readScanline fills line with w RGBE pixels.
func readScanline(br *bufio.Reader, line []byte, w int) error {
	head, err := br.Peek(4)
	if err != nil {
		return err
	}
	if w < 8 || w > 0x7fff || head[0] != 2 || head[1] != 2 || head[2]&0x80 != 0 {
		_, err := io.ReadFull(br, line)
		return err
	}
	if int(head[2])<<8|int(head[3]) != w {
		return errors.New("scanline width mismatch")
	}
	if _, err := br.Discard(4); err != nil {
		return err
	}

	// Four planes (R, G, B, E), each run-length encoded separately
	for c := 0; c < 4; c++ {
		for x := 0; x < w; {
			n, err := br.ReadByte()
			if err != nil {
				return err
			}
			if n > 128 {
				run := int(n) - 128
				if x+run > w {
					return errors.New("run overflows scanline")
				}
				v, err := br.ReadByte()
				if err != nil {
					return err
				}
				for ; run > 0; run-- {
					line[x*4+c] = v
					x++
				}
				continue
			}
			if n == 0 || x+int(n) > w {
				return errors.New("bad literal run")
			}
			for k := 0; k < int(n); k++ {
				v, err := br.ReadByte()
				if err != nil {
					return err
				}
				line[x*4+c] = v
				x++
			}
		}
	}
	return nil
}
