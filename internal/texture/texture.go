// Package texture decodes source textures and writes color maps as TIFF.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/Faultbox/xmodel-tools/internal/logger"
)

// ErrUnsupportedFormat is returned for texture files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported texture format")

// tgaFooterSize is the length of the TGA 2.0 footer. The tga decoder
// always seeks this far back from the end of the file.
const tgaFooterSize = 26

// PlaceholderSize is the edge length of the color map written when a
// material has no usable source texture.
const PlaceholderSize = 64

// PlaceholderColor fills placeholder color maps.
var PlaceholderColor = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

// Decode decodes texture data. ext selects the decoder since TGA has no
// signature to sniff.
func Decode(data []byte, ext string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch strings.ToLower(ext) {
	case ".png":
		return png.Decode(r)
	case ".jpg", ".jpeg":
		return jpeg.Decode(r)
	case ".gif":
		return gif.Decode(r)
	case ".bmp":
		return bmp.Decode(r)
	case ".tga":
		if len(data) < tgaFooterSize {
			padded := make([]byte, tgaFooterSize)
			copy(padded, data)
			r = bytes.NewReader(padded)
		}
		return tga.Decode(r)
	case ".tif", ".tiff":
		return tiff.Decode(r)
	case ".webp":
		return webp.Decode(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Load reads and decodes a texture file.
func Load(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading texture: %w", err)
	}
	img, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("decoding texture %s: %w", path, err)
	}
	return img, nil
}

// Placeholder returns a solid PlaceholderColor image.
func Placeholder() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, PlaceholderSize, PlaceholderSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(PlaceholderColor), image.Point{}, draw.Src)
	return img
}

// EncodeTIFF encodes img as a deflate-compressed TIFF.
func EncodeTIFF(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	opts := &tiff.Options{Compression: tiff.Deflate, Predictor: true}
	if err := tiff.Encode(&buf, ToNRGBA(img), opts); err != nil {
		return nil, fmt.Errorf("encoding TIFF: %w", err)
	}
	return buf.Bytes(), nil
}

// ColorMap returns the TIFF bytes of the color map for a material whose
// source texture is src. An empty or unreadable source yields the
// placeholder, so a bad texture path never blocks an export.
func ColorMap(src string) ([]byte, error) {
	var img image.Image = Placeholder()
	if src != "" {
		loaded, err := Load(src)
		if err != nil {
			logger.Warn("using placeholder color map", zap.String("source", src), zap.Error(err))
		} else {
			img = loaded
		}
	}
	return EncodeTIFF(img)
}

// ToNRGBA converts any image to *image.NRGBA with its origin at (0, 0).
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
