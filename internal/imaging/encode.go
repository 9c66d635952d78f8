package imaging

import (
	"bytes"
	"fmt"
	"image"

	"golang.org/x/image/tiff"
)

const (
	CompressionNone    = "none"
	CompressionDeflate = "deflate"
)

type EncodeOptions struct {
	Compression string
}

func (o EncodeOptions) tiffOptions() (*tiff.Options, error) {
	switch o.Compression {
	case "", CompressionNone:
		return &tiff.Options{Compression: tiff.Uncompressed}, nil
	case CompressionDeflate:
		return &tiff.Options{Compression: tiff.Deflate, Predictor: true}, nil
	}
	return nil, fmt.Errorf("unsupported tiff compression: %s", o.Compression)
}

// EncodeTIFF writes img as a single-page TIFF. Gray and paletted images keep their layout,
// other opaque images are stored as three-sample RGB.
func EncodeTIFF(img image.Image, opts EncodeOptions) ([]byte, error) {
	tiffOpts, err := opts.tiffOptions()
	if err != nil {
		return nil, err
	}

	if isOpaqueColor(img) {
		data, err := encodeRGB(img, tiffOpts.Compression == tiff.Deflate)
		if err != nil {
			return nil, err
		}
		return data, nil
	}

	var buf bytes.Buffer
	b := img.Bounds()
	// Rough heuristic for uncompressed RGB: 3 bytes per pixel
	buf.Grow(b.Dx() * b.Dy() * 3)
	if err := tiff.Encode(&buf, img, tiffOpts); err != nil {
		return nil, fmt.Errorf("failed to encode tiff: %w", err)
	}
	return buf.Bytes(), nil
}

func isOpaqueColor(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16, *image.Paletted:
		return false
	}
	o, ok := img.(interface{ Opaque() bool })
	return ok && o.Opaque()
}
