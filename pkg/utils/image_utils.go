package utils

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

var (
	ErrDecode = errors.New("decode image")
	ErrEncode = errors.New("encode image")
)

// ImageProcessor turns arbitrary source photos into the fixed square JPEG the
// display expects: EXIF orientation applied, largest centered square cropped,
// Lanczos-scaled to size×size, re-encoded without any rotation metadata.
type ImageProcessor struct {
	size    int
	quality int
	log     *zap.Logger
}

func NewImageProcessor(size, quality int, log *zap.Logger) *ImageProcessor {
	return &ImageProcessor{size: size, quality: quality, log: log}
}

func (p *ImageProcessor) Normalize(raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	// Fill crops the largest centered region matching the target aspect ratio,
	// then resamples. Output is always exactly size×size.
	img = imaging.Fill(img, p.size, p.size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	p.log.Debug("Image normalized",
		zap.Int("input_bytes", len(raw)),
		zap.Int("output_bytes", buf.Len()),
		zap.Int("size", p.size))

	return buf.Bytes(), nil
}
