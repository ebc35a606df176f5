// Package envmap loads equirectangular environment maps from files or
// http(s) URLs into linear radiance.
package envmap

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"asset-thumbnailer/internal/raster"
	"asset-thumbnailer/internal/scene"
	"asset-thumbnailer/internal/texture"
)

// DefaultMaxWidth caps the panorama width kept in memory.
const DefaultMaxWidth = 1024

const maxDownloadBytes = 256 << 20

// Loader fetches environment maps. Radiance .hdr data keeps its dynamic
// range; other images are treated as sRGB and linearized.
type Loader struct {
	Client   *http.Client
	MaxWidth int
	Log      *zap.Logger
}

// NewLoader returns a loader with a bounded HTTP client.
func NewLoader(log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		Client:   &http.Client{Timeout: 30 * time.Second},
		MaxWidth: DefaultMaxWidth,
		Log:      log.Named("envmap"),
	}
}

// Load reads uri, which is a local path, a file:// URL or an http(s) URL.
func (l *Loader) Load(ctx context.Context, uri string) (*scene.Environment, error) {
	data, err := l.fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	var env *scene.Environment
	if bytes.HasPrefix(data, []byte("#?")) {
		if env, err = DecodeRGBE(bytes.NewReader(data)); err != nil {
			return nil, err
		}
		env = shrinkHDR(env, l.MaxWidth)
	} else {
		img, err := texture.Decode(data, uriExt(uri))
		if err != nil {
			return nil, fmt.Errorf("envmap: decode %s: %w", uri, err)
		}
		env = fromImage(shrinkLDR(img, l.MaxWidth))
	}
	l.Log.Info("environment map loaded", zap.String("uri", uri), zap.Int("width", env.Width), zap.Int("height", env.Height))
	return env, nil
}

func (l *Loader) fetch(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain path (a one-letter scheme is a Windows drive)
		return readFile(uri)
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		return readFile(u.Path)
	case "http", "https":
	default:
		return nil, fmt.Errorf("envmap: unsupported scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("envmap: request %s: %w", uri, err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("envmap: get %s: %w", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("envmap: get %s: status %s", uri, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("envmap: read %s: %w", uri, err)
	}
	return data, nil
}

// uriExt returns the file extension of a path or URL, ignoring any query.
func uriExt(uri string) string {
	if u, err := url.Parse(uri); err == nil && len(u.Scheme) > 1 {
		return filepath.Ext(u.Path)
	}
	return filepath.Ext(uri)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("envmap: read %s: %w", path, err)
	}
	return data, nil
}

func shrinkLDR(img image.Image, maxW int) image.Image {
	b := img.Bounds()
	if maxW <= 0 || b.Dx() <= maxW {
		return img
	}
	h := max(1, b.Dy()*maxW/b.Dx())
	dst := image.NewNRGBA(image.Rect(0, 0, maxW, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// shrinkHDR box-filters by an integer factor so highlights keep their energy.
func shrinkHDR(env *scene.Environment, maxW int) *scene.Environment {
	if maxW <= 0 || env.Width <= maxW {
		return env
	}
	f := (env.Width + maxW - 1) / maxW
	w, h := env.Width/f, max(1, env.Height/f)
	out := &scene.Environment{Width: w, Height: h, Pix: make([]float32, w*h*3)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum [3]float64
			n := 0
			for sy := y * f; sy < min((y+1)*f, env.Height); sy++ {
				for sx := x * f; sx < (x+1)*f; sx++ {
					px := env.At(sx, sy)
					sum[0] += px[0]
					sum[1] += px[1]
					sum[2] += px[2]
					n++
				}
			}
			i := (y*w + x) * 3
			for c := 0; c < 3; c++ {
				out.Pix[i+c] = float32(sum[c] / float64(n))
			}
		}
	}
	return out
}

func fromImage(img image.Image) *scene.Environment {
	b := img.Bounds()
	env := &scene.Environment{Width: b.Dx(), Height: b.Dy(), Pix: make([]float32, b.Dx()*b.Dy()*3)}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := (y*env.Width + x) * 3
			env.Pix[i] = float32(raster.SRGBToLinear(uint8(r >> 8)))
			env.Pix[i+1] = float32(raster.SRGBToLinear(uint8(g >> 8)))
			env.Pix[i+2] = float32(raster.SRGBToLinear(uint8(bl >> 8)))
		}
	}
	return env
}
