package texture

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/ftrvxmtrx/tga"
)

// ErrUnknownFormat is returned when data is neither PNG, JPEG nor TGA.
var ErrUnknownFormat = errors.New("texture: unknown image format")

var (
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

// Decode decodes PNG, JPEG or TGA data. The tga package registers itself
// without a magic prefix, so image.Decode would hand it every stream; the
// format is picked here from the signature instead. TGA has no signature, so
// it is tried when ext names it or nothing else matched. ext is a file
// extension such as ".tga" and may be empty.
func Decode(data []byte, ext string) (image.Image, error) {
	ext = strings.ToLower(ext)
	switch {
	case ext == ".tga" || ext == ".ozt":
		return tga.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, pngMagic):
		return png.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, jpegMagic):
		return jpeg.Decode(bytes.NewReader(data))
	}
	img, err := tga.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Join(ErrUnknownFormat, err)
	}
	return img, nil
}
