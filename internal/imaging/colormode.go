package imaging

import (
	"fmt"
	"image"
	"strings"
)

// ColorMode is the pixel layout of a page as seen by downstream OCR.
type ColorMode string

const (
	ModeBilevel  ColorMode = "bilevel"
	ModeGray     ColorMode = "gray"
	ModeGray16   ColorMode = "gray16"
	ModePaletted ColorMode = "paletted"
	ModeRGB      ColorMode = "rgb"
	ModeRGBA     ColorMode = "rgba"
	ModeCMYK     ColorMode = "cmyk"
	ModeYCbCr    ColorMode = "ycbcr"
	ModeUnknown  ColorMode = "unknown"
)

var knownModes = map[ColorMode]bool{
	ModeBilevel:  true,
	ModeGray:     true,
	ModeGray16:   true,
	ModePaletted: true,
	ModeRGB:      true,
	ModeRGBA:     true,
	ModeCMYK:     true,
	ModeYCbCr:    true,
	ModeUnknown:  true,
}

// ParseColorMode converts a configured mode name into a ColorMode.
func ParseColorMode(name string) (ColorMode, error) {
	mode := ColorMode(strings.ToLower(strings.TrimSpace(name)))
	if !knownModes[mode] {
		return "", fmt.Errorf("unknown color mode: %s", name)
	}
	return mode, nil
}

// ColorModeOf classifies a decoded image. bitsPerSample and samplesPerPixel come from the
// file header when known and are zero otherwise. A one-bit page is bilevel even though
// the decoder expands it to 8-bit gray.
func ColorModeOf(img image.Image, bitsPerSample, samplesPerPixel int) ColorMode {
	if _, ok := img.(*image.Paletted); ok {
		return ModePaletted
	}
	if bitsPerSample == 1 {
		return ModeBilevel
	}

	switch img.(type) {
	case *image.Gray:
		return ModeGray
	case *image.Gray16:
		return ModeGray16
	case *image.Paletted:
		return ModePaletted
	case *image.CMYK:
		return ModeCMYK
	case *image.YCbCr:
		return ModeYCbCr
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		if samplesPerPixel == 3 {
			return ModeRGB
		}
		return ModeRGBA
	}
	return ModeUnknown
}
