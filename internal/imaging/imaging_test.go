package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packsync/packsync/internal/domain"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, 0, color.NRGBA{R: 200, A: 128})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPrepareProfilePhoto_SmallPNG(t *testing.T) {
	photo, err := PrepareProfilePhoto(bytes.NewReader(encodePNG(t, 40, 30)))

	require.NoError(t, err)
	assert.Equal(t, 40, photo.Width)
	assert.Equal(t, 30, photo.Height)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(photo.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 40, cfg.Width)
}

func TestPrepareProfilePhoto_DownscalesLandscape(t *testing.T) {
	photo, err := PrepareProfilePhoto(bytes.NewReader(encodePNG(t, 2048, 512)))

	require.NoError(t, err)
	assert.Equal(t, MaxDimension, photo.Width)
	assert.Equal(t, 256, photo.Height)
}

func TestPrepareProfilePhoto_DownscalesPortraitJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 600, 3000)), nil))

	photo, err := PrepareProfilePhoto(&buf)

	require.NoError(t, err)
	assert.Equal(t, 204, photo.Width)
	assert.Equal(t, MaxDimension, photo.Height)
}

func TestPrepareProfilePhoto_RejectsNonImage(t *testing.T) {
	_, err := PrepareProfilePhoto(bytes.NewReader([]byte("hello, world")))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPrepareProfilePhoto_RejectsCorruptPNG(t *testing.T) {
	data := encodePNG(t, 10, 10)
	_, err := PrepareProfilePhoto(bytes.NewReader(data[:20]))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestScaledSize(t *testing.T) {
	w, h := scaledSize(5000, 1, 1024)
	assert.Equal(t, 1024, w)
	assert.Equal(t, 1, h)
}
