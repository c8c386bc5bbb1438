// Package imaging prepares profile photos for upload: it checks the format,
// shrinks large pictures and re-encodes everything as JPEG.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // registers the PNG decoder
	"io"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/packsync/packsync/internal/domain"
)

const (
	// MaxDimension bounds the width and height of an output photo.
	MaxDimension = 1024

	// JPEGQuality is the encoder quality for output photos.
	JPEGQuality = 85

	// MaxInputBytes is the largest input accepted.
	MaxInputBytes = 20 << 20

	// ContentType is the MIME type of every output photo.
	ContentType = "image/jpeg"
)

var accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo is an encoded, upload-ready picture.
type Photo struct {
	Data   []byte
	Width  int
	Height int
}

// PrepareProfilePhoto reads a JPEG or PNG, scales it to fit within
// MaxDimension and encodes it as JPEG. Unsupported or oversized input
// returns an error wrapping domain.ErrValidation.
func PrepareProfilePhoto(r io.Reader) (Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxInputBytes+1))
	if err != nil {
		return Photo{}, fmt.Errorf("imaging.PrepareProfilePhoto: reading: %w", err)
	}
	if len(data) > MaxInputBytes {
		return Photo{}, fmt.Errorf("imaging.PrepareProfilePhoto: %w: photo larger than %d bytes", domain.ErrValidation, MaxInputBytes)
	}

	// Trust the bytes, not the file name.
	if kind := http.DetectContentType(data); !accepted[kind] {
		return Photo{}, fmt.Errorf("imaging.PrepareProfilePhoto: %w: unsupported image type %s", domain.ErrValidation, kind)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Photo{}, fmt.Errorf("imaging.PrepareProfilePhoto: %w: decoding: %v", domain.ErrValidation, err)
	}

	img := fit(src, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return Photo{}, fmt.Errorf("imaging.PrepareProfilePhoto: encoding: %w", err)
	}
	b := img.Bounds()
	return Photo{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// fit flattens src onto white (JPEG has no alpha) and scales it with
// Catmull-Rom so that neither side exceeds maxDim, keeping the aspect ratio.
func fit(src image.Image, maxDim int) image.Image {
	sb := src.Bounds()
	w, h := scaledSize(sb.Dx(), sb.Dy(), maxDim)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	return dst
}

func scaledSize(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}
