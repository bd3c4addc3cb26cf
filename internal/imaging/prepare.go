// Package imaging turns a page bitmap into the bitmap handed to OCR and to
// PDF export: clockwise rotation followed by optional hard binarization.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// ErrNilBitmap is returned when a page has no raster to prepare.
var ErrNilBitmap = errors.New("nil bitmap")

// binarizeThreshold is the luminance above which a pixel becomes white.
const binarizeThreshold = 128

// Prepare returns a new bitmap rotated clockwise by rotation degrees and,
// when enhanced is set, binarized. The source is never modified.
// Rotation is always applied before enhancement.
func Prepare(src image.Image, rotation int, enhanced bool) (*image.NRGBA, error) {
	if isNil(src) {
		return nil, ErrNilBitmap
	}

	var out *image.NRGBA
	switch rotation {
	case 0:
		out = Clone(src)
	case 90:
		out = rotate90(ToNRGBA(src))
	case 180:
		out = rotate180(ToNRGBA(src))
	case 270:
		out = rotate270(ToNRGBA(src))
	default:
		return nil, fmt.Errorf("unsupported rotation %d", rotation)
	}

	if enhanced {
		binarize(out)
	}
	return out, nil
}

// isNil reports whether src is nil, including a nil pointer wrapped in the
// interface.
func isNil(src image.Image) bool {
	switch img := src.(type) {
	case nil:
		return true
	case *image.NRGBA:
		return img == nil
	case *image.RGBA:
		return img == nil
	case *image.Gray:
		return img == nil
	}
	return false
}

// ToNRGBA returns src as *image.NRGBA with a zero origin. An NRGBA that
// already has a zero origin is returned as-is, so callers that mutate must
// use Clone instead.
func ToNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return Clone(src)
}

// Clone copies src into a fresh zero-origin NRGBA.
func Clone(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if n, ok := src.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			srcOff := n.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], n.Pix[srcOff:srcOff+b.Dx()*4])
		}
		return dst
	}
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// rotate90 turns the image a quarter turn clockwise: (x, y) -> (h-1-y, x).
func rotate90(src *image.NRGBA) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			copyPixel(dst, h-1-y, x, src, x, y)
		}
	}
	return dst
}

// rotate180: (x, y) -> (w-1-x, h-1-y).
func rotate180(src *image.NRGBA) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			copyPixel(dst, w-1-x, h-1-y, src, x, y)
		}
	}
	return dst
}

// rotate270 turns the image three quarter turns clockwise: (x, y) -> (y, w-1-x).
func rotate270(src *image.NRGBA) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			copyPixel(dst, y, w-1-x, src, x, y)
		}
	}
	return dst
}

func copyPixel(dst *image.NRGBA, dx, dy int, src *image.NRGBA, sx, sy int) {
	si := sy*src.Stride + sx*4
	di := dy*dst.Stride + dx*4
	copy(dst.Pix[di:di+4], src.Pix[si:si+4])
}

// binarize forces every pixel to pure white or pure black based on the
// average of its three color channels. Alpha is left untouched.
func binarize(img *image.NRGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			sum := int(row[i]) + int(row[i+1]) + int(row[i+2])
			var v uint8
			if sum > binarizeThreshold*3 {
				v = 0xff
			}
			row[i], row[i+1], row[i+2] = v, v, v
		}
	}
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
