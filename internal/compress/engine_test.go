package compress

import (
	"bytes"
	"image/color"
	"math/rand"
	"testing"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgpress/internal/models"
)

func testEngine(maxDimension int) *Engine {
	return NewEngine(models.CompressionConfig{MaxDimension: maxDimension, JPEGQuality: 60})
}

func encodeTestImage(t *testing.T, width, height int, format imaging.Format) []byte {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 120, G: 80, B: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}

func decodedSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestCompress_JPEGPreservesDimensions(t *testing.T) {
	e := testEngine(8000)
	original := encodeTestImage(t, 100, 100, imaging.JPEG)

	for _, quality := range []int{0, 1, 40, 75, 100, 500} {
		compressed, err := e.Compress(original, "image/jpeg", quality)
		require.NoError(t, err, "quality %d", quality)
		require.NotEmpty(t, compressed, "quality %d", quality)

		width, height := decodedSize(t, compressed)
		assert.Equal(t, 100, width, "quality %d", quality)
		assert.Equal(t, 100, height, "quality %d", quality)
	}
}

func TestCompress_JPGAlias(t *testing.T) {
	e := testEngine(8000)
	original := encodeTestImage(t, 40, 30, imaging.JPEG)

	compressed, err := e.Compress(original, "image/jpg", 50)
	require.NoError(t, err)
	assert.NotEmpty(t, compressed)
}

func TestCompress_CapsDimensions(t *testing.T) {
	// A small injected cap stands in for the 8000px production value so
	// the test does not have to decode a 10000px raster.
	e := testEngine(50)
	original := encodeTestImage(t, 100, 40, imaging.JPEG)

	compressed, err := e.Compress(original, "image/jpeg", 60)
	require.NoError(t, err)

	width, height := decodedSize(t, compressed)
	assert.Equal(t, 50, width, "larger dimension should land exactly on the cap")
	assert.Equal(t, 20, height, "aspect ratio should be preserved")
}

func TestCompress_BelowCapUntouched(t *testing.T) {
	e := testEngine(50)
	original := encodeTestImage(t, 50, 50, imaging.JPEG)

	compressed, err := e.Compress(original, "image/jpeg", 60)
	require.NoError(t, err)

	width, height := decodedSize(t, compressed)
	assert.Equal(t, 50, width)
	assert.Equal(t, 50, height)
}

func TestCompress_PNG(t *testing.T) {
	e := testEngine(8000)
	original := encodeTestImage(t, 64, 48, imaging.PNG)

	compressed, err := e.Compress(original, "image/png", 0)
	require.NoError(t, err)
	require.NotEmpty(t, compressed)

	width, height := decodedSize(t, compressed)
	assert.Equal(t, 64, width)
	assert.Equal(t, 48, height)
}

func TestCompress_WebP(t *testing.T) {
	e := testEngine(8000)

	img := imaging.New(32, 32, color.NRGBA{R: 10, G: 200, B: 30, A: 255})
	var buf bytes.Buffer
	require.NoError(t, webp.Encode(&buf, img, &webp.Options{Lossless: true}))

	compressed, err := e.Compress(buf.Bytes(), "image/webp", 0)
	require.NoError(t, err)
	require.NotEmpty(t, compressed)

	width, height := decodedSize(t, compressed)
	assert.Equal(t, 32, width)
	assert.Equal(t, 32, height)
}

func TestCompress_TiffPassesValidationButFailsCompression(t *testing.T) {
	e := testEngine(8000)
	v := NewValidator(nil)
	original := encodeTestImage(t, 10, 10, imaging.TIFF)

	require.True(t, v.Compressible("image/tiff"))

	_, err := e.Compress(original, "image/tiff", 60)
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
}

func TestCompress_BmpUnsupported(t *testing.T) {
	e := testEngine(8000)
	original := encodeTestImage(t, 10, 10, imaging.BMP)

	_, err := e.Compress(original, "image/bmp", 60)
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
}

func TestCompress_MalformedBytes(t *testing.T) {
	e := testEngine(8000)

	_, err := e.Compress([]byte("definitely not an image"), "image/jpeg", 60)
	assert.ErrorIs(t, err, models.ErrDecode)
}

func TestCompress_SizeSanity(t *testing.T) {
	e := testEngine(8000)

	// Noise compresses poorly; this is a sanity bound, not a guarantee.
	img := imaging.New(200, 200, color.NRGBA{A: 255})
	rng := rand.New(rand.NewSource(1))
	for i := range img.Pix {
		img.Pix[i] = byte(rng.Intn(256))
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)))
	original := buf.Bytes()

	compressed, err := e.Compress(original, "image/jpeg", 20)
	require.NoError(t, err)
	assert.Less(t, len(compressed), 2*len(original))
}
