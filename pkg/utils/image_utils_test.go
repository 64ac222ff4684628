package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestNormalizeOutputIsAlwaysSquare(t *testing.T) {
	proc := NewImageProcessor(240, 85, zap.NewNop())

	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "wide png", raw: encodePNG(t, 640, 200)},
		{name: "tall png", raw: encodePNG(t, 200, 640)},
		{name: "square png", raw: encodePNG(t, 500, 500)},
		{name: "smaller than target", raw: encodePNG(t, 100, 60)},
		{name: "jpeg input", raw: encodeJPEG(t, 320, 480)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := proc.Normalize(tt.raw)
			require.NoError(t, err)

			cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, "jpeg", format)
			assert.Equal(t, 240, cfg.Width)
			assert.Equal(t, 240, cfg.Height)
		})
	}
}

func TestNormalizeRespectsConfiguredSize(t *testing.T) {
	proc := NewImageProcessor(128, 85, zap.NewNop())

	out, err := proc.Normalize(encodePNG(t, 640, 200))
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.Width)
	assert.Equal(t, 128, cfg.Height)
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	proc := NewImageProcessor(240, 85, zap.NewNop())

	_, err := proc.Normalize([]byte("this is not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestNormalizeRejectsEmptyInput(t *testing.T) {
	proc := NewImageProcessor(240, 85, zap.NewNop())

	_, err := proc.Normalize(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}
